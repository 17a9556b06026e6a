package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// GetMyHistory lists the caller's analyses, most recent first.
func (h *Handlers) GetMyHistory(c *gin.Context) {
	user := middleware.CurrentUser(c)

	records, err := h.History.List(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

// DeleteHistoryItem removes one record owned by the caller.
func (h *Handlers) DeleteHistoryItem(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := c.Param("id")

	if err := h.History.Delete(c.Request.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete history item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History item deleted"})
}

// GetMyInvoices lists the caller's payment records, most recent first.
func (h *Handlers) GetMyInvoices(c *gin.Context) {
	user := middleware.CurrentUser(c)

	invoices, err := h.Billing.List(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoices"})
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
