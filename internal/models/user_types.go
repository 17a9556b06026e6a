package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role values stored on the users table.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subscription status values.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// UnlimitedCredits is the sentinel stored in users.credits for plans with
// unlimited usage. No other negative value is valid.
const UnlimitedCredits = -1

// FreeTierCredits is the credit allotment a fresh (or downgraded) free-tier
// account carries.
const FreeTierCredits = 3

// User is the entitlement record: one row per identity, the single source of
// truth for plan, credit balance, verification state, subscription status and
// any attached discount.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"fullName" db:"full_name"`
	Role         string `json:"role" db:"role"`

	PlanID             string `json:"planId" db:"plan_id"`
	Credits            int    `json:"credits" db:"credits"`
	SubscriptionStatus string `json:"subscriptionStatus" db:"subscription_status"`
	IsEmailVerified    bool   `json:"isEmailVerified" db:"is_email_verified"`
	IsPhoneVerified    bool   `json:"isPhoneVerified" db:"is_phone_verified"`

	// --- Nullable profile fields (pointers = clean JSON) ---
	PhoneNumber *string `json:"phoneNumber,omitempty" db:"phone_number"`
	CompanyName *string `json:"companyName,omitempty" db:"company_name"`
	Country     *string `json:"country,omitempty" db:"country"`

	// Discount is populated from the discounts table when one is attached.
	Discount *Discount `json:"discount,omitempty" db:"-"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Pending verification codes, never serialized.
	EmailCode  *string    `json:"-" db:"email_code"`
	PhoneCode  *string    `json:"-" db:"phone_code"`
	CodeExpiry *time.Time `json:"-" db:"code_expiry"`
}

// HasUnlimitedCredits reports whether the account is on an unlimited plan.
func (u *User) HasUnlimitedCredits() bool {
	return u.Credits == UnlimitedCredits
}

// Discount is a retention offer attached to a user. It affects the price of
// the *next* plan purchase only, and only while EndDate is still in the
// future. IsActive alone must never be trusted at the point of use.
type Discount struct {
	IsActive bool      `json:"isActive" db:"is_active"`
	Rate     float64   `json:"rate" db:"rate"` // 0 < rate < 1
	EndDate  time.Time `json:"endDate" db:"end_date"`
}

// Valid reports whether the discount may be applied at the given instant.
// Expired discounts must not be applied even if IsActive was never cleared.
func (d *Discount) Valid(now time.Time) bool {
	if d == nil || !d.IsActive {
		return false
	}
	if d.Rate <= 0 || d.Rate >= 1 {
		return false
	}
	return now.Before(d.EndDate)
}

// Password helper: hashes on Set, compares on Matches.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
