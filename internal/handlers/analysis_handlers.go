package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/ai"
	"github.com/tariffsnap/tariffsnap-golang/internal/auth"
	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// maxImageBytes caps the uploaded product photo.
const maxImageBytes = 10 << 20

// Analyze runs one classification request end to end:
// gate on entitlement, single-flight the user, call the classifier, and only
// after a validated success consume a credit and append history. Failures of
// any kind are never charged.
func (h *Handlers) Analyze(c *gin.Context) {
	user := middleware.CurrentUser(c)

	// Entitlement gate first: a denied attempt makes no network call.
	if decision := entitlement.CanAnalyze(user); !decision.Allowed {
		respondDenied(c, decision.Reason)
		return
	}

	if !h.tryAcquireAnalysis(user.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "An analysis is already in progress"})
		return
	}
	defer h.releaseAnalysis(user.ID)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required (field 'image')"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds the 10 MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded image"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded image"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file must be an image"})
		return
	}

	result, err := h.Classifier.Classify(c.Request.Context(), imageData, mimeType)
	if err != nil {
		// No credit is charged on any failure; the user may retry.
		if errors.Is(err, ai.ErrInvalidResponse) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "The classification service returned an unusable result. Please try again.",
				"retryable": true,
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "The classification service is unreachable. Please try again.",
			"retryable": true,
		})
		return
	}
	result.ConfidenceScore = ai.ClampConfidence(result.ConfidenceScore)

	// Confirmed success: consume the credit now, atomically at the store.
	if err := h.Profiles.ConsumeCredit(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, store.ErrNoCredits) {
			// A concurrent session spent the last credit mid-flight. The
			// result already exists; deliver it and log the anomaly.
			log.Printf("analysis: user %d credit raced to zero mid-flight", user.ID)
		} else {
			log.Printf("analysis: credit consume for user %d failed: %v", user.ID, err)
		}
	}

	record, err := h.History.Append(c.Request.Context(), user.ID, result)
	if err != nil {
		// The user already got their analysis; losing the ledger row is
		// degraded, not fatal. Queue it for the background retry drain.
		log.Printf("analysis: history append for user %d failed, queued for retry: %v", user.ID, err)
		h.queueHistoryRetry(user.ID, result)
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		updated = user
	}

	resp := gin.H{
		"result":           result,
		"creditsRemaining": updated.Credits,
	}
	if record != nil {
		resp["historyId"] = record.ID
	}
	c.JSON(http.StatusOK, resp)
}

// GetSectionVisibility returns the visibility matrix for the caller, guest
// or authenticated. Public route: a bearer token is honored when present
// but never required.
func (h *Handlers) GetSectionVisibility(c *gin.Context) {
	user := h.optionalUser(c)

	catalog, err := h.Plans.List(c.Request.Context())
	if err != nil {
		log.Printf("visibility: plan catalog load failed, using defaults: %v", err)
		catalog = models.DefaultPlans
	}

	c.JSON(http.StatusOK, gin.H{
		"sections": entitlement.VisibilityMatrix(user, catalog),
	})
}

// optionalUser resolves a bearer token when one is supplied, returning nil
// (guest) otherwise.
func (h *Handlers) optionalUser(c *gin.Context) *models.User {
	header := c.GetHeader("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil
	}
	userID, err := auth.ValidateToken(parts[1])
	if err != nil {
		return nil
	}
	user, err := h.Profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

// queueHistoryRetry stores a failed append for the background drain.
func (h *Handlers) queueHistoryRetry(userID int64, result models.ClassificationResult) {
	h.retryMu.Lock()
	defer h.retryMu.Unlock()
	h.retryQueue = append(h.retryQueue, pendingAppend{UserID: userID, Result: result})
}

// DrainHistoryRetries re-attempts queued history appends. Entries that fail
// again go back on the queue. Called from the scheduler.
func (h *Handlers) DrainHistoryRetries(ctx context.Context) {
	h.retryMu.Lock()
	pending := h.retryQueue
	h.retryQueue = nil
	h.retryMu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Printf("history retry: draining %d queued append(s)", len(pending))

	for _, p := range pending {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := h.History.Append(ctx, p.UserID, p.Result)
		cancel()
		if err != nil {
			log.Printf("history retry: append for user %d failed again: %v", p.UserID, err)
			h.queueHistoryRetry(p.UserID, p.Result)
		}
	}
}
