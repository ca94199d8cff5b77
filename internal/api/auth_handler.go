package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/auth"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/geoip"
	"github.com/leaplineadmin/brevy-sub002/internal/mailer"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
const passwordResetKeyPrefix = "auth:pwreset:"
const passwordResetTTL = time.Hour

const (
	loginRateLimitPerHour = 10
	loginLockThreshold    = 5
	loginLockTTL          = 15 * time.Minute
)

// AuthHandler handles registration, login, token refresh, logout, password
// change and password reset.
type AuthHandler struct {
	db            *gorm.DB
	authService   *auth.AuthService
	redis         redis.UniversalClient
	logger        *slog.Logger
	asynqClient   *asynq.Client
	geo           *geoip.Client
	drafts        *draft.Service
	cookieDomain  string
	publicBaseURL string
}

// NewAuthHandler builds the auth handler. geo and drafts may be nil in tests.
func NewAuthHandler(
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
	asynqClient *asynq.Client,
	geo *geoip.Client,
	drafts *draft.Service,
	cookieDomain string,
	publicBaseURL string,
) *AuthHandler {
	return &AuthHandler{
		db:            db,
		authService:   authService,
		redis:         redisClient,
		logger:        logger,
		asynqClient:   asynqClient,
		geo:           geo,
		drafts:        drafts,
		cookieDomain:  cookieDomain,
		publicBaseURL: publicBaseURL,
	}
}

type registerRequest struct {
	Email            string `json:"email" binding:"required,email,max=255"`
	Username         string `json:"username" binding:"required,min=3,max=64"`
	Password         string `json:"password" binding:"required,min=8,max=72"`
	Language         string `json:"language"`
	DraftID          uint   `json:"draft_id"`
	MarketingConsent bool   `json:"marketing_consent"`
}

// Register creates an account. The interface language defaults from the
// request IP's country unless the client picked one. A draft_id claims the
// visitor's anonymous draft in the same breath.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	var existing database.User
	err := h.db.WithContext(ctx).
		Where("email = ? OR username = ?", req.Email, req.Username).
		First(&existing).Error
	if err == nil {
		logger.Info("register conflict: account already exists")
		Conflict(c, "email or username already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" && h.geo != nil {
		language = geoip.LanguageFor(h.geo.Country(ctx, c.ClientIP()))
	}
	if language == "" {
		language = "en"
	}

	now := time.Now()
	user := database.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashed,
		Language:     language,
		ConsentAt:    &now,
	}
	if req.MarketingConsent {
		user.MarketingConsentAt = &now
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "email or username already taken")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if req.DraftID != 0 && h.drafts != nil {
		if _, err := h.drafts.Claim(ctx, req.DraftID, user.ID); err != nil {
			// Account creation already succeeded; a lost draft is not fatal.
			logger.Warn("claim draft during register failed",
				slog.Uint64("draft_id", uint64(req.DraftID)), slog.Any("error", err))
		}
	}

	h.enqueueEmail(c, func() (*asynq.Task, error) {
		subject, html := mailer.Welcome(user.Language, user.Username)
		return tasks.NewEmailSendTask(tasks.EmailSendPayload{
			To:            user.Email,
			Template:      "welcome",
			Language:      user.Language,
			Subject:       subject,
			HTML:          html,
			CorrelationID: middleware.GetCorrelationID(c),
		})
	})

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.replyWithTokenPair(c, http.StatusCreated, tokenPair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	// Rate limit: per IP+email per hour.
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if count > loginRateLimitPerHour {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			_ = h.incrementLoginFail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.incrementLoginFail(ctx, email)
		Unauthorized(c)
		return
	}

	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh validates the refresh token, rotates it, and issues a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		logger.Info("refresh token not usable", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(claims.UserID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// Rotate: the old refresh token must never work twice.
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=8,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,min=8,max=72"`
}

// ChangePassword verifies the current password and replaces it.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		BadRequest(c, "password confirmation does not match")
		return
	}

	userID := c.GetUint("userID")
	if userID == 0 {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Info("change password: user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if !h.authService.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}

	if strings.TrimSpace(req.NewPassword) == strings.TrimSpace(req.CurrentPassword) {
		BadRequest(c, "new password must be different from current password")
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).
		Update("password_hash", hashed).Error; err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if refreshToken, err := c.Cookie(refreshTokenCookieName); err == nil && refreshToken != "" {
		if claims, err := h.authService.ValidateToken(refreshToken); err == nil && claims.TokenType == "refresh" && claims.ID != "" {
			key := refreshTokenBlacklistKeyPrefix + claims.ID
			if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
				logger.Error("change password: revoke refresh failed", slog.Any("error", err))
				Internal(c, "internal error")
				return
			}
		}
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("change password: generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair)
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestPasswordReset stores a one-hour token in redis and mails a reset
// link. The response never reveals whether the email exists.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	accepted := func() { c.JSON(http.StatusAccepted, gin.H{"status": "accepted"}) }

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("reset lookup failed", slog.Any("error", err))
		}
		accepted()
		return
	}

	token, err := randomToken()
	if err != nil {
		logger.Error("reset token generation failed", slog.Any("error", err))
		accepted()
		return
	}
	key := passwordResetKeyPrefix + token
	if err := h.redis.Set(ctx, key, user.ID, passwordResetTTL).Err(); err != nil {
		logger.Error("reset token store failed", slog.Any("error", err))
		accepted()
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(h.publicBaseURL, "/"), token)
	h.enqueueEmail(c, func() (*asynq.Task, error) {
		subject, html := mailer.PasswordReset(user.Language, resetURL)
		return tasks.NewEmailSendTask(tasks.EmailSendPayload{
			To:            user.Email,
			Template:      "password_reset",
			Language:      user.Language,
			Subject:       subject,
			HTML:          html,
			CorrelationID: middleware.GetCorrelationID(c),
		})
	})

	accepted()
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	key := passwordResetKeyPrefix + strings.TrimSpace(req.Token)
	userID, err := h.redis.Get(ctx, key).Uint64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error("reset token lookup failed", slog.Any("error", err))
		}
		Unauthorized(c)
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("reset hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	res := h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("password_hash", hashed)
	if res.Error != nil {
		logger.Error("reset update failed", slog.Any("error", res.Error))
		Internal(c, "internal error")
		return
	}
	if res.RowsAffected == 0 {
		Unauthorized(c)
		return
	}

	// One use only.
	_ = h.redis.Del(ctx, key).Err()

	logger.Info("password reset completed", slog.Uint64("user_id", userID))
	c.Status(http.StatusOK)
}

// Logout blacklists the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("logout token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		logger.Info("logout token not usable", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	stdhttp.SetCookie(c.Writer, &stdhttp.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusOK)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, status int, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(status, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	stdhttp.SetCookie(c.Writer, &stdhttp.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) enqueueEmail(c *gin.Context, build func() (*asynq.Task, error)) {
	if h.asynqClient == nil {
		return
	}
	task, err := build()
	if err != nil {
		h.loggerFromContext(c).Error("build email task failed", slog.Any("error", err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		h.loggerFromContext(c).Error("enqueue email task failed", slog.Any("error", err))
	}
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, loginLockTTL).Err()
	}
	if count >= loginLockThreshold {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", loginLockTTL).Err()
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
