package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/api/middleware"
	"github.com/leaplineadmin/brevy-sub002/internal/billing"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/render"
)

// BillingHandler connects subscription state to the payment provider.
type BillingHandler struct {
	db            *gorm.DB
	client        *billing.Client
	webhookSecret string
	publicBaseURL string
}

func NewBillingHandler(db *gorm.DB, client *billing.Client, webhookSecret, publicBaseURL string) *BillingHandler {
	return &BillingHandler{
		db:            db,
		client:        client,
		webhookSecret: webhookSecret,
		publicBaseURL: publicBaseURL,
	}
}

// Checkout starts a subscription checkout session and returns its URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("checkout: load user failed", slog.Any("error", err))
		Internal(c, "could not start checkout")
		return
	}
	if user.HasActiveSubscription {
		Conflict(c, "subscription already active")
		return
	}

	base := strings.TrimRight(h.publicBaseURL, "/")
	session, err := h.client.CreateCheckoutSession(ctx, user.ID, user.Email,
		base+"/billing/success", base+"/billing/cancelled")
	if err != nil {
		logger.Error("checkout session failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": session.URL})
}

// Cancel stops the subscription at period end.
func (h *BillingHandler) Cancel(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("cancel: load user failed", slog.Any("error", err))
		Internal(c, "could not cancel subscription")
		return
	}
	if user.StripeSubscriptionID == "" {
		NotFound(c, "no subscription to cancel")
		return
	}

	if _, err := h.client.CancelSubscription(ctx, user.StripeSubscriptionID); err != nil {
		logger.Error("cancel subscription failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancellation scheduled"})
}

// Webhook ingests provider events. The signature gate is the only
// authentication; the body must be read raw before parsing.
func (h *BillingHandler) Webhook(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		BadRequest(c, "unreadable payload")
		return
	}

	if err := billing.VerifySignature(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret, time.Now()); err != nil {
		logger.Warn("webhook signature rejected", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	ev, err := billing.ParseEvent(payload)
	if err != nil {
		BadRequest(c, "malformed event")
		return
	}

	ctx := c.Request.Context()
	switch ev.Type {
	case billing.EventCheckoutCompleted:
		session, err := billing.CheckoutSessionFromEvent(ev)
		if err != nil {
			BadRequest(c, "malformed event")
			return
		}
		if err := h.activateSubscription(ctx, session); err != nil {
			logger.Error("activate subscription failed", slog.Any("error", err))
			Internal(c, "could not apply event")
			return
		}

	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		sub, err := billing.SubscriptionFromEvent(ev)
		if err != nil {
			BadRequest(c, "malformed event")
			return
		}
		if err := h.applySubscriptionState(ctx, sub); err != nil {
			logger.Error("apply subscription state failed", slog.Any("error", err))
			Internal(c, "could not apply event")
			return
		}

	default:
		// Unhandled event types are acknowledged so the provider stops
		// retrying them.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *BillingHandler) activateSubscription(ctx context.Context, session *billing.CheckoutSession) error {
	userID, err := strconv.ParseUint(session.ClientRef, 10, 64)
	if err != nil {
		return err
	}

	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"stripe_customer_id":      session.Customer,
				"stripe_subscription_id":  session.Subscription,
				"has_active_subscription": true,
			}).Error; err != nil {
			return err
		}
		// A renewed subscription unlocks previously locked CVs.
		return tx.Model(&database.CV{}).
			Where("user_id = ? AND premium_locked = ?", userID, true).
			Update("premium_locked", false).Error
	})
}

func (h *BillingHandler) applySubscriptionState(ctx context.Context, sub *billing.Subscription) error {
	active := billing.StatusGrantsAccess(sub.Status)

	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user database.User
		if err := tx.Where("stripe_subscription_id = ?", sub.ID).First(&user).Error; err != nil {
			// Customer lookup as fallback; providers occasionally rotate
			// subscription ids on plan changes.
			if err := tx.Where("stripe_customer_id = ?", sub.Customer).First(&user).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&user).
			Update("has_active_subscription", active).Error; err != nil {
			return err
		}
		if active {
			return tx.Model(&database.CV{}).
				Where("user_id = ? AND premium_locked = ?", user.ID, true).
				Update("premium_locked", false).Error
		}

		// Lapsed: lock and unpublish CVs built on premium templates.
		for _, tpl := range render.List() {
			if !tpl.Premium {
				continue
			}
			if err := tx.Model(&database.CV{}).
				Where("user_id = ? AND template = ?", user.ID, tpl.Name).
				Updates(map[string]any{
					"premium_locked": true,
					"published":      false,
					"subdomain":      nil,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
