// Package store implements persistence for profiles, analysis history,
// invoices and site content over MySQL. Credit mutations are conditional
// single-statement updates so concurrent sessions cannot lose writes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrNoCredits is returned when a conditional credit decrement finds
	// nothing left to consume (a concurrent session got there first).
	ErrNoCredits = errors.New("store: no credits remaining")
	// ErrDuplicateEmail is returned when registering an email twice.
	ErrDuplicateEmail = errors.New("store: email already registered")
)

// ProfileStore is the authoritative mapping from identity to entitlement
// record.
type ProfileStore struct {
	DB *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{DB: db}
}

const userColumns = `id, email, password_hash, full_name, role, plan_id, credits,
	subscription_status, is_email_verified, is_phone_verified,
	phone_number, company_name, country, email_code, phone_code, code_expiry,
	created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.PlanID, &u.Credits,
		&u.SubscriptionStatus, &u.IsEmailVerified, &u.IsPhoneVerified,
		&u.PhoneNumber, &u.CompanyName, &u.Country, &u.EmailCode, &u.PhoneCode, &u.CodeExpiry,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a fresh entitlement record with the registration defaults:
// free plan, the free-tier credit allotment, both verification flags false,
// subscription active.
func (s *ProfileStore) Create(ctx context.Context, email, passwordHash, fullName string) (int64, error) {
	now := time.Now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO users
		(email, password_hash, full_name, role, plan_id, credits, subscription_status,
		 is_email_verified, is_phone_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		email, passwordHash, fullName, models.RoleUser,
		models.PlanFree, models.FreeTierCredits, models.SubscriptionActive,
		now, now,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// GetByID loads a user with any attached discount.
func (s *ProfileStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return s.attachDiscount(ctx, u)
}

// GetByEmail loads a user by identity key, with any attached discount.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return s.attachDiscount(ctx, u)
}

func (s *ProfileStore) attachDiscount(ctx context.Context, u *models.User) (*models.User, error) {
	var d models.Discount
	err := s.DB.QueryRowContext(ctx,
		`SELECT is_active, rate, end_date FROM discounts WHERE user_id = ?`, u.ID,
	).Scan(&d.IsActive, &d.Rate, &d.EndDate)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// no discount attached
	case err != nil:
		return nil, fmt.Errorf("load discount: %w", err)
	default:
		u.Discount = &d
	}
	return u, nil
}

// UpdateProfile patches the editable profile fields. Nil pointers leave the
// column untouched.
func (s *ProfileStore) UpdateProfile(ctx context.Context, id int64, fullName *string, phone, company, country *string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE users SET
			full_name = COALESCE(?, full_name),
			phone_number = COALESCE(?, phone_number),
			company_name = COALESCE(?, company_name),
			country = COALESCE(?, country),
			updated_at = ?
		WHERE id = ?`,
		fullName, phone, company, country, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Delete removes the record. History, invoices and discounts cascade.
func (s *ProfileStore) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every entitlement record, newest first. Admin only.
func (s *ProfileStore) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ConsumeCredit decrements the balance by one, atomically and only while it
// is positive, so racing sessions cannot drive it negative or lose an
// update. Unlimited balances (-1) are left alone.
func (s *ProfileStore) ConsumeCredit(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET credits = credits - 1, updated_at = ?
		WHERE id = ? AND credits > 0`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("consume credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing decremented: either unlimited (fine) or exhausted (error).
	var credits int
	err = s.DB.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, id).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if credits == models.UnlimitedCredits {
		return nil
	}
	return ErrNoCredits
}

// GrantVerificationCredit sets the channel's flag and grants one bonus
// credit in a single guarded statement: the WHERE clause makes the grant
// one-shot even across racing sessions, and the IF() keeps unlimited
// balances at -1.
func (s *ProfileStore) GrantVerificationCredit(ctx context.Context, id int64, channel entitlement.VerificationChannel) (bool, error) {
	var flag string
	switch channel {
	case entitlement.ChannelEmail:
		flag = "is_email_verified"
	case entitlement.ChannelPhone:
		flag = "is_phone_verified"
	default:
		return false, fmt.Errorf("unknown verification channel %q", channel)
	}

	// flag is one of two fixed column names, never user input.
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET `+flag+` = 1,
			credits = IF(credits = ?, credits, credits + 1),
			updated_at = ?
		WHERE id = ? AND `+flag+` = 0`,
		models.UnlimitedCredits, time.Now(), id,
	)
	if err != nil {
		return false, fmt.Errorf("grant verification credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetVerificationCode stores a pending code for the channel with its expiry.
func (s *ProfileStore) SetVerificationCode(ctx context.Context, id int64, channel entitlement.VerificationChannel, code string, expiry time.Time) error {
	col := "email_code"
	if channel == entitlement.ChannelPhone {
		col = "phone_code"
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET `+col+` = ?, code_expiry = ?, updated_at = ? WHERE id = ?`,
		code, expiry, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set verification code: %w", err)
	}
	return nil
}

// SetPlan activates a plan: plan id, credit allotment, status active.
// Called on payment confirmation.
func (s *ProfileStore) SetPlan(ctx context.Context, id int64, planID string, credits int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE users SET plan_id = ?, credits = ?, subscription_status = ?, updated_at = ?
		WHERE id = ?`,
		planID, credits, models.SubscriptionActive, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

// CancelSubscription performs the destructive downgrade: plan forced to
// free, credits reset to the free default, status cancelled, any discount
// deactivated. Irreversible except via a new purchase.
func (s *ProfileStore) CancelSubscription(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET plan_id = ?, credits = ?, subscription_status = ?, updated_at = ?
		WHERE id = ?`,
		models.PlanFree, models.FreeTierCredits, models.SubscriptionCancelled, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE discounts SET is_active = 0 WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("clear discount: %w", err)
	}
	return tx.Commit()
}

// AttachDiscount attaches (or refreshes) the retention discount.
func (s *ProfileStore) AttachDiscount(ctx context.Context, id int64, rate float64, endDate time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO discounts (user_id, is_active, rate, end_date)
		VALUES (?, 1, ?, ?)
		ON DUPLICATE KEY UPDATE is_active = 1, rate = VALUES(rate), end_date = VALUES(end_date)`,
		id, rate, endDate,
	)
	if err != nil {
		return fmt.Errorf("attach discount: %w", err)
	}
	return nil
}

// ClearDiscount deactivates an attached discount (after it is consumed by a
// purchase, or by the expiry sweep).
func (s *ProfileStore) ClearDiscount(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE discounts SET is_active = 0 WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear discount: %w", err)
	}
	return nil
}

// DeactivateExpiredDiscounts flips is_active off for every discount whose
// end date has passed. PriceFor never applies expired discounts anyway; this
// sweep just stops listings from carrying dead rows.
func (s *ProfileStore) DeactivateExpiredDiscounts(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE discounts SET is_active = 0 WHERE is_active = 1 AND end_date <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired discounts: %w", err)
	}
	return res.RowsAffected()
}

// isDuplicateKey detects a MySQL duplicate-key error (1062).
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
