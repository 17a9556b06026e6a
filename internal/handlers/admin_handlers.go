package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// ListUsers returns every entitlement record. Admin (manage-users) only.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.Profiles.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser hard-deletes an account. Admin (manage-users) only; the only
// path besides self-service that removes a record.
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if actor := middleware.CurrentUser(c); actor != nil && actor.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admins cannot delete their own account here"})
		return
	}

	if err := h.Profiles.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// GetContent serves one site-content blob. Public.
func (h *Handlers) GetContent(c *gin.Context) {
	key := store.NormalizeKey(c.Param("key"))

	content, err := h.Content.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load content"})
		return
	}
	c.JSON(http.StatusOK, content)
}

// PutContent stores one site-content blob. Admin (manage-content) only.
func (h *Handlers) PutContent(c *gin.Context) {
	key := store.NormalizeKey(c.Param("key"))

	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must be valid JSON"})
		return
	}

	content, err := h.Content.Put(c.Request.Context(), key, body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save content"})
		return
	}
	c.JSON(http.StatusOK, content)
}
