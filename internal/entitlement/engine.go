// Package entitlement is the decision engine for plan gating: it answers,
// from an already-loaded user record and the plan catalog, whether an
// analysis may run, which result sections are visible or locked, and what a
// plan costs right now. All functions are pure; persistence of the resulting
// state is the caller's job.
package entitlement

import "github.com/tariffsnap/tariffsnap-golang/internal/models"

// DenyReason explains a refused analysis attempt.
type DenyReason string

const (
	DenyNotAuthenticated      DenyReason = "not_authenticated"
	DenySubscriptionCancelled DenyReason = "subscription_cancelled"
	DenyCreditsExhausted      DenyReason = "credits_exhausted"
)

// Decision is the outcome of CanAnalyze.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when Allowed
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// CanAnalyze reports whether the user may start an analysis right now.
// It never mutates state: the credit decrement happens only after the
// downstream classification succeeds, so failed attempts are never charged.
func CanAnalyze(user *models.User) Decision {
	if user == nil {
		return Deny(DenyNotAuthenticated)
	}
	if user.SubscriptionStatus == models.SubscriptionCancelled {
		return Deny(DenySubscriptionCancelled)
	}
	if user.Credits == 0 {
		return Deny(DenyCreditsExhausted)
	}
	// credits == -1 (unlimited) and credits > 0 both allow.
	return Allow
}

// VerificationChannel selects which verification flag a credit grant targets.
type VerificationChannel string

const (
	ChannelEmail VerificationChannel = "email"
	ChannelPhone VerificationChannel = "phone"
)

// GrantVerificationCredit marks the channel verified and grants exactly one
// bonus credit. Idempotent: if the flag is already set, the record is
// returned unchanged. Unlimited balances stay unlimited.
func GrantVerificationCredit(user models.User, channel VerificationChannel) models.User {
	switch channel {
	case ChannelEmail:
		if user.IsEmailVerified {
			return user
		}
		user.IsEmailVerified = true
	case ChannelPhone:
		if user.IsPhoneVerified {
			return user
		}
		user.IsPhoneVerified = true
	default:
		return user
	}
	if user.Credits != models.UnlimitedCredits {
		user.Credits++
	}
	return user
}

// ConsumeCredit charges one credit for a completed analysis. Must be called
// only after confirmed success. Unlimited balances are untouched; the
// balance never goes below zero.
func ConsumeCredit(user models.User) models.User {
	if user.Credits == models.UnlimitedCredits {
		return user
	}
	if user.Credits > 0 {
		user.Credits--
	}
	return user
}
