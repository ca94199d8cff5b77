package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
)

// anonCookieName identifies an anonymous visitor across draft submissions.
const anonCookieName = "brevy_anon"

const anonCookieMaxAge = 60 * 60 * 24 * 30

// DraftHandler exposes the anonymous draft lifecycle.
type DraftHandler struct {
	svc       *draft.Service
	db        *gorm.DB
	freeLimit int
}

func NewDraftHandler(svc *draft.Service, db *gorm.DB, freeLimit int) *DraftHandler {
	return &DraftHandler{svc: svc, db: db, freeLimit: freeLimit}
}

// anonID returns the visitor's anonymous ID, setting the cookie when absent.
func anonID(c *gin.Context) string {
	if id, err := c.Cookie(anonCookieName); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(anonCookieName, id, anonCookieMaxAge, "/", "", false, true)
	return id
}

type draftResponse struct {
	ID        uint   `json:"id"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
	Created   bool   `json:"created"`
}

func toDraftResponse(row *database.CVDraft, created bool) draftResponse {
	return draftResponse{
		ID:        row.ID,
		Status:    row.Status,
		ExpiresAt: row.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Created:   created,
	}
}

// CreateDraft accepts an anonymous resume payload. Submitting identical
// content twice returns the same draft.
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var payload draft.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, "invalid draft payload")
		return
	}

	row, created, err := h.svc.CreateOrGet(c.Request.Context(), payload, anonID(c))
	if err != nil {
		if errors.Is(err, draft.ErrInvalidPayload) {
			BadRequest(c, "invalid draft payload")
			return
		}
		middleware.LoggerFromContext(c).Error("create draft failed", "error", err)
		Internal(c, "could not save draft")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toDraftResponse(row, created))
}

// GetDraft returns a draft to the visitor who created it, so the builder can
// restore unsaved work.
func (h *DraftHandler) GetDraft(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid draft id")
		return
	}

	row, err := h.svc.Get(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrNotFound):
			NotFound(c, "draft not found")
		case errors.Is(err, draft.ErrExpired):
			Gone(c, "draft expired")
		default:
			middleware.LoggerFromContext(c).Error("load draft failed", "error", err)
			Internal(c, "could not load draft")
		}
		return
	}

	if row.AnonID != anonID(c) {
		NotFound(c, "draft not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         row.ID,
		"status":     row.Status,
		"expires_at": row.ExpiresAt,
		"payload":    row.Payload,
	})
}

// ClaimDraft binds a draft to the authenticated user.
func (h *DraftHandler) ClaimDraft(c *gin.Context) {
	userID := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid draft id")
		return
	}

	row, err := h.svc.Claim(c.Request.Context(), uint(id), userID)
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrNotFound):
			NotFound(c, "draft not found")
		case errors.Is(err, draft.ErrExpired):
			Gone(c, "draft expired")
		case errors.Is(err, draft.ErrClaimed):
			Conflict(c, "draft already claimed")
		case errors.Is(err, draft.ErrConverted):
			Conflict(c, "draft already converted")
		default:
			middleware.LoggerFromContext(c).Error("claim draft failed", "error", err)
			Internal(c, "could not claim draft")
		}
		return
	}

	c.JSON(http.StatusOK, toDraftResponse(row, false))
}

// ConvertDraft promotes a claimed draft into a permanent CV.
func (h *DraftHandler) ConvertDraft(c *gin.Context) {
	userID := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid draft id")
		return
	}

	allowed, err := withinCVQuota(c, h.db, userID, h.freeLimit)
	if err != nil {
		middleware.LoggerFromContext(c).Error("cv quota check failed", "error", err)
		Internal(c, "could not convert draft")
		return
	}
	if !allowed {
		Forbidden(c, "resume limit reached, upgrade to create more")
		return
	}

	cv, err := h.svc.Convert(c.Request.Context(), uint(id), userID)
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "draft not found")
		case errors.Is(err, draft.ErrExpired):
			Gone(c, "draft expired")
		case errors.Is(err, draft.ErrConverted):
			Conflict(c, "draft already converted")
		case errors.Is(err, draft.ErrNotClaimed):
			Conflict(c, "draft must be claimed first")
		case errors.Is(err, draft.ErrInvalidPayload):
			BadRequest(c, "draft payload is not valid resume content")
		default:
			middleware.LoggerFromContext(c).Error("convert draft failed", "error", err)
			Internal(c, "could not convert draft")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cv_id": cv.ID})
}
