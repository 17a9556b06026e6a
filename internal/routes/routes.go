package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/handlers"
	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
)

// CORSMiddleware allows the configured frontend origin to call the API.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("FRONTEND_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()
	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Public catalog & content ---
		v1.GET("/plans", h.GetPlans)
		v1.GET("/plans/:id/quote", h.GetPlanQuote)
		v1.GET("/content/:key", h.GetContent)

		// --- Section visibility (guest-aware, token optional) ---
		v1.GET("/analysis/sections", h.GetSectionVisibility)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h))
		{
			auth.GET("/profile/me", h.GetMyProfile)
			auth.PUT("/profile/me", h.UpdateMyProfile)
			auth.DELETE("/profile/me", h.DeleteMyAccount)

			auth.POST("/verification/request", h.RequestVerificationCode)
			auth.POST("/verification/confirm", h.ConfirmVerification)

			auth.POST("/analysis", h.Analyze)
			auth.GET("/analysis/history", h.GetMyHistory)
			auth.DELETE("/analysis/history/:id", h.DeleteHistoryItem)

			auth.GET("/billing/invoices", h.GetMyInvoices)

			auth.POST("/subscription/purchase", h.PurchasePlan)
			auth.POST("/subscription/cancel", h.RequestCancellation)
			auth.POST("/subscription/retention/accept", h.AcceptRetentionOffer)
			auth.POST("/subscription/cancel/confirm", h.ConfirmCancellation)
		}

		// --- Admin Routes (capability-gated per group) ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h))
		{
			users := admin.Group("/")
			users.Use(middleware.RequireCapability(entitlement.CapManageUsers))
			{
				users.GET("/users", h.ListUsers)
				users.DELETE("/users/:id", h.DeleteUser)
			}

			plans := admin.Group("/")
			plans.Use(middleware.RequireCapability(entitlement.CapManagePlans))
			{
				plans.POST("/plans", h.UpsertPlan)
				plans.PUT("/plans/:id", h.UpsertPlan)
				plans.DELETE("/plans/:id", h.DeletePlan)
			}

			content := admin.Group("/")
			content.Use(middleware.RequireCapability(entitlement.CapManageContent))
			{
				content.PUT("/content/:key", h.PutContent)
			}
		}
	}

	return router
}
