package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/cvdata"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/render"
)

// CVHandler owns the resume CRUD and publishing surface.
type CVHandler struct {
	db        *gorm.DB
	freeLimit int
}

// NewCVHandler builds the handler. freeLimit caps how many resumes a user
// without a subscription may keep; zero or negative disables the cap.
func NewCVHandler(db *gorm.DB, freeLimit int) *CVHandler {
	return &CVHandler{db: db, freeLimit: freeLimit}
}

// withinCVQuota reports whether the user may create another resume.
func withinCVQuota(c *gin.Context, db *gorm.DB, userID uint, freeLimit int) (bool, error) {
	if freeLimit <= 0 {
		return true, nil
	}

	var user database.User
	if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		return false, err
	}
	if user.HasActiveSubscription {
		return true, nil
	}

	var count int64
	if err := db.WithContext(c.Request.Context()).Model(&database.CV{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count < int64(freeLimit), nil
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])?$`)

// Names that would shadow product or infrastructure hosts.
var reservedSubdomains = map[string]bool{
	"www": true, "api": true, "app": true, "admin": true, "mail": true,
	"blog": true, "help": true, "status": true, "billing": true,
}

func validSubdomain(name string) bool {
	return subdomainPattern.MatchString(name) && !reservedSubdomains[name]
}

type cvRequest struct {
	Title       string         `json:"title"`
	Kind        string         `json:"kind"`
	Template    string         `json:"template"`
	AccentColor string         `json:"accent_color"`
	Language    string         `json:"language"`
	Content     datatypes.JSON `json:"content"`
}

// loadOwnedCV fetches a CV belonging to the authenticated user, writing the
// error response itself on failure.
func (h *CVHandler) loadOwnedCV(c *gin.Context) (*database.CV, bool) {
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
			middleware.LoggerFromContext(c).Error("load cv failed", "error", err)
			Internal(c, "could not load cv")
		}
		return nil, false
	}
	return &cv, true
}

// ListCVs returns every resume the user owns, newest first.
func (h *CVHandler) ListCVs(c *gin.Context) {
	userID := c.GetUint("userID")

	var cvs []database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&cvs).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list cvs failed", "error", err)
		Internal(c, "could not list cvs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cvs": cvs})
}

// CreateCV creates a resume directly, without going through a draft.
func (h *CVHandler) CreateCV(c *gin.Context) {
	userID := c.GetUint("userID")

	var req cvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid cv payload")
		return
	}
	if req.Template != "" {
		if _, err := render.Lookup(req.Template); err != nil {
			BadRequest(c, "unknown template")
			return
		}
	}

	allowed, err := withinCVQuota(c, h.db, userID, h.freeLimit)
	if err != nil {
		middleware.LoggerFromContext(c).Error("cv quota check failed", "error", err)
		Internal(c, "could not create cv")
		return
	}
	if !allowed {
		Forbidden(c, "resume limit reached, upgrade to create more")
		return
	}

	cv := database.CV{
		Title:       defaultString(req.Title, "Untitled resume"),
		Kind:        defaultString(req.Kind, database.CVKindPage),
		Template:    defaultString(req.Template, "classic"),
		AccentColor: req.AccentColor,
		Language:    defaultString(req.Language, "en"),
		Content:     req.Content,
		UserID:      userID,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&cv).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create cv failed", "error", err)
		Internal(c, "could not create cv")
		return
	}

	c.JSON(http.StatusCreated, cv)
}

// GetCV returns one owned resume.
func (h *CVHandler) GetCV(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cv)
}

// UpdateCV overwrites the stored resume. Latest write wins; there is no
// version check.
func (h *CVHandler) UpdateCV(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}

	var req cvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid cv payload")
		return
	}
	if req.Template != "" {
		if _, err := render.Lookup(req.Template); err != nil {
			BadRequest(c, "unknown template")
			return
		}
	}

	updates := map[string]any{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Kind == database.CVKindPage || req.Kind == database.CVKindDigital {
		updates["kind"] = req.Kind
	}
	if req.Template != "" {
		updates["template"] = req.Template
	}
	if req.AccentColor != "" {
		updates["accent_color"] = req.AccentColor
	}
	if req.Language != "" {
		updates["language"] = req.Language
	}
	if req.Content != nil {
		updates["content"] = req.Content
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, cv)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(cv).Updates(updates).Error; err != nil {
		middleware.LoggerFromContext(c).Error("update cv failed", "error", err)
		Internal(c, "could not update cv")
		return
	}

	c.JSON(http.StatusOK, cv)
}

// DeleteCV soft-deletes a resume, freeing its subdomain.
func (h *CVHandler) DeleteCV(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(cv).Updates(map[string]any{
			"published": false,
			"subdomain": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(cv).Error
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("delete cv failed", "error", err)
		Internal(c, "could not delete cv")
		return
	}

	c.Status(http.StatusNoContent)
}

type publishRequest struct {
	Subdomain string `json:"subdomain" binding:"required"`
}

// PublishCV makes a resume public under a subdomain. Premium templates
// require an active subscription.
func (h *CVHandler) PublishCV(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "subdomain is required")
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if !validSubdomain(name) {
		BadRequest(c, "invalid subdomain")
		return
	}

	tpl, err := render.Lookup(cv.Template)
	if err != nil {
		BadRequest(c, "unknown template")
		return
	}
	if tpl.Premium {
		var user database.User
		if err := h.db.WithContext(c.Request.Context()).First(&user, cv.UserID).Error; err != nil {
			middleware.LoggerFromContext(c).Error("load user failed", "error", err)
			Internal(c, "could not publish cv")
			return
		}
		if !user.HasActiveSubscription {
			Forbidden(c, "premium template requires an active subscription")
			return
		}
	}
	if cv.PremiumLocked {
		Forbidden(c, "cv is locked, renew your subscription")
		return
	}

	// Availability check and write race on the partial unique index; a
	// conflicting insert between the two turns into the constraint error.
	var taken int64
	if err := h.db.WithContext(c.Request.Context()).Model(&database.CV{}).
		Where("subdomain = ? AND id <> ?", name, cv.ID).
		Count(&taken).Error; err != nil {
		middleware.LoggerFromContext(c).Error("subdomain lookup failed", "error", err)
		Internal(c, "could not publish cv")
		return
	}
	if taken > 0 {
		Conflict(c, "subdomain already in use")
		return
	}

	now := time.Now()
	if err := h.db.WithContext(c.Request.Context()).Model(cv).Updates(map[string]any{
		"subdomain":    name,
		"published":    true,
		"published_at": &now,
	}).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "subdomain already in use")
			return
		}
		middleware.LoggerFromContext(c).Error("publish cv failed", "error", err)
		Internal(c, "could not publish cv")
		return
	}

	c.JSON(http.StatusOK, cv)
}

// UnpublishCV takes a resume offline and releases its subdomain.
func (h *CVHandler) UnpublishCV(c *gin.Context) {
	cv, ok := h.loadOwnedCV(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(cv).Updates(map[string]any{
		"published":    false,
		"subdomain":    nil,
		"published_at": nil,
	}).Error; err != nil {
		middleware.LoggerFromContext(c).Error("unpublish cv failed", "error", err)
		Internal(c, "could not unpublish cv")
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckSubdomain reports whether a subdomain is syntactically valid and free.
func (h *CVHandler) CheckSubdomain(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Query("name")))
	if !validSubdomain(name) {
		c.JSON(http.StatusOK, gin.H{"name": name, "valid": false, "available": false})
		return
	}

	var taken int64
	if err := h.db.WithContext(c.Request.Context()).Model(&database.CV{}).
		Where("subdomain = ?", name).
		Count(&taken).Error; err != nil {
		middleware.LoggerFromContext(c).Error("subdomain lookup failed", "error", err)
		Internal(c, "could not check subdomain")
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": name, "valid": true, "available": taken == 0})
}

// PublicCV serves a published resume by subdomain: normalized content only,
// never raw stored payload, never example placeholders.
func (h *CVHandler) PublicCV(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Param("subdomain")))
	if !validSubdomain(name) {
		NotFound(c, "cv not found")
		return
	}

	var cv database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("subdomain = ? AND published = ?", name, true).
		First(&cv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "cv not found")
		} else {
			middleware.LoggerFromContext(c).Error("load public cv failed", "error", err)
			Internal(c, "could not load cv")
		}
		return
	}
	if cv.PremiumLocked {
		NotFound(c, "cv not found")
		return
	}

	data, err := cvdata.Decode(cv.Content)
	if err != nil {
		middleware.LoggerFromContext(c).Error("decode cv content failed", "error", err)
		Internal(c, "could not load cv")
		return
	}
	data = cvdata.Normalize(data, cvdata.ModePublished, cv.Language)

	c.JSON(http.StatusOK, gin.H{
		"title":        cv.Title,
		"kind":         cv.Kind,
		"template":     cv.Template,
		"accent_color": cv.AccentColor,
		"language":     cv.Language,
		"content":      data,
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed")
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
