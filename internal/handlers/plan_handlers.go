package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// planView is a catalog entry with the caller's effective price.
type planView struct {
	models.Plan
	DisplayPrice entitlement.DisplayPrice `json:"displayPrice"`
}

// GetPlans lists the catalog. Public; when the caller is authenticated and
// carries a fresh discount, each plan's display price reflects it.
func (h *Handlers) GetPlans(c *gin.Context) {
	user := h.optionalUser(c)

	catalog, err := h.Plans.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	now := time.Now()
	views := make([]planView, 0, len(catalog))
	for _, p := range catalog {
		views = append(views, planView{
			Plan:         p,
			DisplayPrice: entitlement.PriceFor(p, user, now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": views})
}

// GetPlanQuote returns the effective price of one plan for the caller.
func (h *Handlers) GetPlanQuote(c *gin.Context) {
	user := h.optionalUser(c)

	plan, err := h.Plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":         plan,
		"displayPrice": entitlement.PriceFor(*plan, user, time.Now()),
	})
}

type PlanInput struct {
	Name     string   `json:"name" binding:"required"`
	Price    string   `json:"price" binding:"required"`
	Tier     int      `json:"tier" binding:"min=0"`
	Credits  int      `json:"credits" binding:"min=-1"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular"`
}

// UpsertPlan creates or updates a catalog entry. Admin (manage-plans) only.
// The plan id is derived from the name unless the URL names an existing id.
func (h *Handlers) UpsertPlan(c *gin.Context) {
	var input PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if id == "" {
		id = slug.Make(input.Name)
	}

	plan := models.Plan{
		ID:       id,
		Name:     input.Name,
		Price:    input.Price,
		Tier:     input.Tier,
		Credits:  input.Credits,
		Features: input.Features,
		Popular:  input.Popular,
	}
	if err := h.Plans.Upsert(c.Request.Context(), plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// DeletePlan removes a catalog entry. Admin (manage-plans) only.
func (h *Handlers) DeletePlan(c *gin.Context) {
	if err := h.Plans.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}
