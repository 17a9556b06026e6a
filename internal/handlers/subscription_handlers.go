package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// Retention offer policy: half price on the next purchase for three months.
const (
	retentionRate   = 0.5
	retentionWindow = 3
)

type PurchaseInput struct {
	PlanID string `json:"planId" binding:"required"`
}

// PurchasePlan confirms payment and activates the plan: plan id and credit
// allotment replace the current ones, status returns to active. A fresh
// retention discount is applied to this charge and then consumed.
func (h *Handlers) PurchasePlan(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input PurchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.Plans.Get(c.Request.Context(), input.PlanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}
	if plan.ID == models.PlanFree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The free plan cannot be purchased"})
		return
	}

	now := time.Now()
	amount, display, err := entitlement.ChargeFor(*plan, user, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "This plan cannot be purchased right now"})
		return
	}

	if err := h.Payments.ConfirmPayment(c.Request.Context(), user.Email, plan.ID, amount); err != nil {
		// Payment errors keep the user on the payment step.
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment was not completed", "detail": err.Error()})
		return
	}

	if err := h.Profiles.SetPlan(c.Request.Context(), user.ID, plan.ID, plan.Credits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment succeeded but plan activation failed; contact support"})
		return
	}

	// A discount applies to one purchase only.
	if display.Discounted {
		if err := h.Profiles.ClearDiscount(c.Request.Context(), user.ID); err != nil {
			// Non-fatal: the expiry sweep will catch it.
			log.Printf("purchase: clearing discount for user %d failed: %v", user.ID, err)
		}
	}

	invoice, err := h.Billing.Append(c.Request.Context(), user.ID, plan.Name, display.Amount, models.InvoicePaid)
	if err != nil {
		// The purchase already happened; a missing invoice row is degraded,
		// not fatal.
		log.Printf("purchase: invoice append for user %d failed: %v", user.ID, err)
		invoice = nil
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload profile"})
		return
	}

	resp := gin.H{"user": updated, "charged": display}
	if invoice != nil {
		resp["invoice"] = invoice
	}
	c.JSON(http.StatusOK, resp)
}

// RequestCancellation is the first step of the cancellation flow. It never
// cancels: it returns the retention offer, and the client must either accept
// it or make the separate, explicit confirmation call.
func (h *Handlers) RequestCancellation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if user.PlanID == models.PlanFree || user.SubscriptionStatus == models.SubscriptionCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "There is no active subscription to cancel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offer": gin.H{
			"rate":        retentionRate,
			"months":      retentionWindow,
			"description": "Stay on your current plan and get 50% off your next purchase for 3 months.",
		},
		"warning": "Confirming cancellation downgrades you to the free plan and resets your credits. This cannot be undone.",
	})
}

// AcceptRetentionOffer attaches the time-bounded discount and keeps the plan
// active. Plan and credits are untouched.
func (h *Handlers) AcceptRetentionOffer(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if user.PlanID == models.PlanFree || user.SubscriptionStatus == models.SubscriptionCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "There is no active subscription"})
		return
	}

	endDate := time.Now().AddDate(0, retentionWindow, 0)
	if err := h.Profiles.AttachDiscount(c.Request.Context(), user.ID, retentionRate, endDate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply the offer"})
		return
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Discount applied", "user": updated})
}

type ConfirmCancellationInput struct {
	// Confirm must be explicitly true: cancellation is a distinct second
	// step, never one click away from a retention-accepted state.
	Confirm bool `json:"confirm"`
}

// ConfirmCancellation finalizes the downgrade: plan forced to free, credits
// reset to the free default, discount cleared, status cancelled.
func (h *Handlers) ConfirmCancellation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input ConfirmCancellationInput
	if err := c.ShouldBindJSON(&input); err != nil || !input.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cancellation requires explicit confirmation"})
		return
	}

	if user.SubscriptionStatus == models.SubscriptionCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The subscription is already cancelled"})
		return
	}

	if err := h.Profiles.CancelSubscription(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cancellation failed"})
		return
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled", "user": updated})
}
