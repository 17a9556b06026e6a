package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariffsnap/tariffsnap-golang/internal/auth"
	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

type staticLoader struct {
	user *models.User
}

func (l staticLoader) LoadUser(_ *gin.Context, id int64) (*models.User, error) {
	if l.user != nil && l.user.ID == id {
		return l.user, nil
	}
	return nil, errors.New("not found")
}

func testRouter(loader middleware.UserLoader, cap entitlement.Capability) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/", middleware.AuthMiddleware(loader))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": middleware.CurrentUser(c).ID})
	})
	if cap != "" {
		gated := protected.Group("/", middleware.RequireCapability(cap))
		gated.GET("/admin", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
	return r
}

func get(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	user := &models.User{ID: 7, Role: models.RoleUser}
	r := testRouter(staticLoader{user: user}, "")

	token, err := auth.GenerateToken(7)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(r, "/me", tt.header).Code)
		})
	}
}

func TestAuthMiddleware_UnknownAccount(t *testing.T) {
	r := testRouter(staticLoader{}, "")
	token, err := auth.GenerateToken(99)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+token).Code)
}

func TestRequireCapability(t *testing.T) {
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	plain := &models.User{ID: 2, Role: models.RoleUser}

	adminToken, _ := auth.GenerateToken(1)
	plainToken, _ := auth.GenerateToken(2)

	adminRouter := testRouter(staticLoader{user: admin}, entitlement.CapManageUsers)
	plainRouter := testRouter(staticLoader{user: plain}, entitlement.CapManageUsers)

	assert.Equal(t, http.StatusOK, get(adminRouter, "/admin", "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get(plainRouter, "/admin", "Bearer "+plainToken).Code)
}
