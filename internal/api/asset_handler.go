package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

const maxPhotoSize = 5 << 20

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// AssetHandler owns per-CV binary assets: the profile photo and the exported
// PDF.
type AssetHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	asynqClient *asynq.Client
	logger      *slog.Logger
	clamdAddr   string
}

func NewAssetHandler(db *gorm.DB, storageClient *storage.Client, asynqClient *asynq.Client, logger *slog.Logger, clamdAddr string) *AssetHandler {
	return &AssetHandler{
		db:          db,
		storage:     storageClient,
		asynqClient: asynqClient,
		logger:      logger,
		clamdAddr:   clamdAddr,
	}
}

func (h *AssetHandler) loadOwnedCV(c *gin.Context) (*database.CV, bool) {
	userID := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid cv id")
		return nil, false
	}

	var cv database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		First(&cv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "cv not found")
		} else {
			Internal(c, "could not load cv")
		}
		return nil, false
	}
	return &cv, true
}

// UploadPhoto scans and stores the resume photo, replacing any previous one.
func (h *AssetHandler) UploadPhoto(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxPhotoSize {
		BadRequest(c, "photo too large")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !allowedPhotoTypes[contentType] {
		BadRequest(c, "unsupported image type")
		return
	}

	if h.clamdAddr != "" {
		clean, err := h.scanUpload(c, file)
		if err != nil {
			h.logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	objectKey := storage.PhotoKey(cv.UserID, cv.ID)
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload photo", slog.String("error", err.Error()))
		Internal(c, "failed to upload photo")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(cv).
		Update("photo_object_key", objectKey).Error; err != nil {
		h.logger.Error("record photo key", slog.String("error", err.Error()))
		Internal(c, "failed to save photo")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"object_key": objectKey})
}

// scanUpload streams the file through clamd and reports whether it is clean.
func (h *AssetHandler) scanUpload(c *gin.Context, file *multipart.FileHeader) (bool, error) {
	fileReader, err := file.Open()
	if err != nil {
		return false, err
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

// RequestExport enqueues an asynchronous PDF export. The worker announces
// completion over the notification channel.
func (h *AssetHandler) RequestExport(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}
	if cv.PremiumLocked {
		Forbidden(c, "cv is locked, renew your subscription")
		return
	}

	task, err := tasks.NewPDFExportTask(cv.ID, cv.UserID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "could not schedule export")
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		h.logger.Error("enqueue pdf export", slog.String("error", err.Error()))
		Internal(c, "could not schedule export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "export scheduled"})
}

// ExportLink returns a presigned URL for the last finished export.
func (h *AssetHandler) ExportLink(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}
	if cv.PdfObjectKey == "" {
		NotFound(c, "no export available")
		return
	}

	filename := safeFilename(cv.Title) + ".pdf"
	url, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), cv.PdfObjectKey, 15*time.Minute, map[string]string{
		"response-content-disposition": `attachment; filename="` + filename + `"`,
	})
	if err != nil {
		h.logger.Error("generate export url", slog.String("error", err.Error()))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func safeFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, title)
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return "resume"
	}
	return cleaned
}
