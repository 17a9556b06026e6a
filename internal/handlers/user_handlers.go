package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/auth"
	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/middleware"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// codeTTL bounds how long a verification code stays redeemable.
const codeTTL = 15 * time.Minute

type RegisterInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates the default entitlement record: free plan, free-tier
// credits, both verification flags false, subscription active.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	id, err := h.Profiles.Create(c.Request.Context(), input.Email, password.Hash, input.FullName)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "This email is already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	token, err := auth.GenerateToken(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}

	user, err := h.Profiles.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a session token.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Profiles.GetByEmail(c.Request.Context(), input.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil || !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetMyProfile returns the caller's entitlement record with the derived
// capability set, so the client renders admin affordances from the same
// source the server enforces.
func (h *Handlers) GetMyProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"capabilities": entitlement.Capabilities(user.Role),
	})
}

type UpdateProfileInput struct {
	FullName    *string `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	CompanyName *string `json:"companyName"`
	Country     *string `json:"country"`
}

// UpdateMyProfile patches the editable profile fields.
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Profiles.UpdateProfile(c.Request.Context(), user.ID,
		input.FullName, input.PhoneNumber, input.CompanyName, input.Country)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

// DeleteMyAccount removes the record and everything owned by it.
func (h *Handlers) DeleteMyAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.Profiles.Delete(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

type RequestCodeInput struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
}

// RequestVerificationCode generates and delivers a 6-digit code for the
// requested channel.
func (h *Handlers) RequestVerificationCode(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input RequestCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := entitlement.VerificationChannel(input.Channel)
	if alreadyVerified(user, channel) {
		c.JSON(http.StatusOK, gin.H{"message": "Already verified"})
		return
	}

	code, err := generateCode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate code"})
		return
	}

	expiry := time.Now().Add(codeTTL)
	if err := h.Profiles.SetVerificationCode(c.Request.Context(), user.ID, channel, code, expiry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store code"})
		return
	}

	var sendErr error
	switch channel {
	case entitlement.ChannelEmail:
		sendErr = h.EmailSender.SendCode(user.Email, code)
	case entitlement.ChannelPhone:
		to := user.Email
		if user.PhoneNumber != nil {
			to = *user.PhoneNumber
		}
		sendErr = h.PhoneSender.SendCode(to, code)
	}
	if sendErr != nil {
		log.Printf("verification: delivery to user %d failed: %v", user.ID, sendErr)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not deliver the verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

type ConfirmVerificationInput struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
	Code    string `json:"code" binding:"required"`
}

// ConfirmVerification redeems a code. The first successful confirmation per
// channel grants one bonus credit; re-verifying is a no-op.
func (h *Handlers) ConfirmVerification(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input ConfirmVerificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := entitlement.VerificationChannel(input.Channel)
	if alreadyVerified(user, channel) {
		c.JSON(http.StatusOK, gin.H{"message": "Already verified", "granted": false})
		return
	}

	stored := user.EmailCode
	if channel == entitlement.ChannelPhone {
		stored = user.PhoneCode
	}
	if stored == nil || *stored != input.Code {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code"})
		return
	}
	if user.CodeExpiry == nil || time.Now().After(*user.CodeExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code expired"})
		return
	}

	granted, err := h.Profiles.GrantVerificationCredit(c.Request.Context(), user.ID, channel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
		return
	}

	updated, err := h.Profiles.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verified", "granted": granted, "user": updated})
}

func alreadyVerified(user *models.User, channel entitlement.VerificationChannel) bool {
	switch channel {
	case entitlement.ChannelEmail:
		return user.IsEmailVerified
	case entitlement.ChannelPhone:
		return user.IsPhoneVerified
	}
	return false
}

// generateCode returns a 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
