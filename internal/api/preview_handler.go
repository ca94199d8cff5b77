package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/cvdata"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/errcode"
	"github.com/leaplineadmin/brevy-sub002/internal/render"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
)

// PreviewHandler serves rendered resume documents: the builder's live preview
// iframe and the worker's print source.
type PreviewHandler struct {
	db       *gorm.DB
	renderer *render.Renderer
	storage  *storage.Client
}

func NewPreviewHandler(db *gorm.DB, renderer *render.Renderer, storageClient *storage.Client) *PreviewHandler {
	return &PreviewHandler{db: db, renderer: renderer, storage: storageClient}
}

// Preview renders the owner's resume for the builder iframe. `?mode=published`
// switches off placeholder injection so the owner sees exactly what visitors
// will.
func (h *PreviewHandler) Preview(c *gin.Context) {
	userID := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid cv id")
		return
	}

	var cv database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		First(&cv).Error; err != nil {
		NotFound(c, "cv not found")
		return
	}

	mode := cvdata.ModeBuilder
	if c.Query("mode") == "published" {
		mode = cvdata.ModePublished
	}

	photoURL := ""
	if cv.PhotoObjectKey != "" && h.storage != nil {
		photoURL, err = h.storage.GeneratePresignedURL(c.Request.Context(), cv.PhotoObjectKey, 15*time.Minute)
		if err != nil {
			middleware.LoggerFromContext(c).Warn("photo presign failed",
				"error", err, "code", errcode.ResourceMissing)
			photoURL = ""
		}
	}

	html, err := h.renderDocument(c.Request.Context(), &cv, mode, photoURL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview failed", "error", err)
		Internal(c, "could not render preview")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// Print serves the worker's PDF source: published-mode rendering with the
// photo inlined as a data URI so the headless browser needs no credentials.
// Guarded by the internal secret middleware; there is no owner check.
func (h *PreviewHandler) Print(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid cv id")
		return
	}

	var cv database.CV
	if err := h.db.WithContext(c.Request.Context()).First(&cv, id).Error; err != nil {
		NotFound(c, "cv not found")
		return
	}

	photoURL := ""
	if cv.PhotoObjectKey != "" && h.storage != nil {
		photoURL, err = h.inlinePhoto(c.Request.Context(), cv.PhotoObjectKey)
		if err != nil {
			if !storage.IsNoSuchKey(err) {
				middleware.LoggerFromContext(c).Error("inline photo failed", "error", err)
				Internal(c, "could not render print document")
				return
			}
			// Missing photo degrades to a photo-less document.
			middleware.LoggerFromContext(c).Warn("photo object missing",
				"object_key", cv.PhotoObjectKey, "code", errcode.ResourceMissing)
		}
	}

	html, err := h.renderDocument(c.Request.Context(), &cv, cvdata.ModePublished, photoURL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render print document failed", "error", err)
		Internal(c, "could not render print document")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

func (h *PreviewHandler) renderDocument(ctx context.Context, cv *database.CV, mode cvdata.Mode, photoURL string) (string, error) {
	data, err := cvdata.Decode(cv.Content)
	if err != nil {
		return "", err
	}
	return h.renderer.Render(data, render.Options{
		Template:    cv.Template,
		AccentColor: cv.AccentColor,
		Kind:        cv.Kind,
		Language:    cv.Language,
		Mode:        mode,
		PhotoURL:    photoURL,
	})
}

func (h *PreviewHandler) inlinePhoto(ctx context.Context, objectKey string) (string, error) {
	obj, err := h.storage.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	contentType := "image/jpeg"
	if stat, statErr := obj.Stat(); statErr == nil && stat.ContentType != "" {
		contentType = stat.ContentType
	} else if statErr != nil {
		return "", statErr
	}

	raw, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read photo object: %w", err)
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw)), nil
}
