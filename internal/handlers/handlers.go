package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/email"
	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/payment"
)

// ProfileStore is the persistence surface the handlers need for entitlement
// records. Implemented by store.ProfileStore; faked in tests.
type ProfileStore interface {
	Create(ctx context.Context, email, passwordHash, fullName string) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, fullName, phone, company, country *string) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]models.User, error)
	ConsumeCredit(ctx context.Context, id int64) error
	GrantVerificationCredit(ctx context.Context, id int64, channel entitlement.VerificationChannel) (bool, error)
	SetVerificationCode(ctx context.Context, id int64, channel entitlement.VerificationChannel, code string, expiry time.Time) error
	SetPlan(ctx context.Context, id int64, planID string, credits int) error
	CancelSubscription(ctx context.Context, id int64) error
	AttachDiscount(ctx context.Context, id int64, rate float64, endDate time.Time) error
	ClearDiscount(ctx context.Context, id int64) error
}

// HistoryStore is the analysis ledger surface.
type HistoryStore interface {
	Append(ctx context.Context, userID int64, result models.ClassificationResult) (*models.AnalysisRecord, error)
	List(ctx context.Context, userID int64) ([]models.AnalysisRecord, error)
	Delete(ctx context.Context, userID int64, id string) error
}

// BillingStore is the invoice ledger surface.
type BillingStore interface {
	Append(ctx context.Context, userID int64, planName, amount, status string) (*models.Invoice, error)
	List(ctx context.Context, userID int64) ([]models.Invoice, error)
}

// PlanStore is the catalog surface.
type PlanStore interface {
	List(ctx context.Context) ([]models.Plan, error)
	Get(ctx context.Context, id string) (*models.Plan, error)
	Upsert(ctx context.Context, p models.Plan) error
	Delete(ctx context.Context, id string) error
}

// ContentStore is the site-content surface.
type ContentStore interface {
	Get(ctx context.Context, key string) (*models.SiteContent, error)
	Put(ctx context.Context, key string, body json.RawMessage) (*models.SiteContent, error)
}

// Classifier is the AI classification collaborator.
type Classifier interface {
	Classify(ctx context.Context, imageData []byte, mimeType string) (models.ClassificationResult, error)
}

// Handlers holds every dependency the HTTP layer needs.
type Handlers struct {
	Profiles ProfileStore
	History  HistoryStore
	Billing  BillingStore
	Plans    PlanStore
	Content  ContentStore

	Classifier  Classifier
	Payments    payment.Provider
	EmailSender email.CodeSender
	PhoneSender email.CodeSender

	// Single-flight guard: at most one analysis in flight per user.
	inflightMu sync.Mutex
	inflight   map[int64]struct{}

	// Failed history appends queued for background retry.
	retryMu    sync.Mutex
	retryQueue []pendingAppend
}

type pendingAppend struct {
	UserID int64
	Result models.ClassificationResult
}

// LoadUser implements middleware.UserLoader.
func (h *Handlers) LoadUser(c *gin.Context, id int64) (*models.User, error) {
	return h.Profiles.GetByID(c.Request.Context(), id)
}

// tryAcquireAnalysis reserves the user's analysis slot. Returns false when
// one is already in flight.
func (h *Handlers) tryAcquireAnalysis(userID int64) bool {
	h.inflightMu.Lock()
	defer h.inflightMu.Unlock()
	if h.inflight == nil {
		h.inflight = make(map[int64]struct{})
	}
	if _, busy := h.inflight[userID]; busy {
		return false
	}
	h.inflight[userID] = struct{}{}
	return true
}

func (h *Handlers) releaseAnalysis(userID int64) {
	h.inflightMu.Lock()
	defer h.inflightMu.Unlock()
	delete(h.inflight, userID)
}

// respondDenied maps an entitlement deny reason to its HTTP shape.
func respondDenied(c *gin.Context, reason entitlement.DenyReason) {
	status := http.StatusForbidden
	message := "Not allowed"
	switch reason {
	case entitlement.DenyNotAuthenticated:
		status = http.StatusUnauthorized
		message = "Please sign in to analyze products"
	case entitlement.DenySubscriptionCancelled:
		status = http.StatusForbidden
		message = "Your subscription is cancelled. Purchase a plan to continue."
	case entitlement.DenyCreditsExhausted:
		status = http.StatusPaymentRequired
		message = "You have no credits left. Upgrade your plan or verify your contact details for bonus credits."
	}
	c.JSON(status, gin.H{"error": message, "reason": string(reason)})
}
