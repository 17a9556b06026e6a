package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// BillingStore is the append-only ledger of payments made.
type BillingStore struct {
	DB *sql.DB
}

func NewBillingStore(db *sql.DB) *BillingStore {
	return &BillingStore{DB: db}
}

// Append records one payment outcome.
func (s *BillingStore) Append(ctx context.Context, userID int64, planName, amount, status string) (*models.Invoice, error) {
	inv := &models.Invoice{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanName:  planName,
		Amount:    amount,
		Status:    status,
		CreatedAt: time.Now(),
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO invoices (id, user_id, plan_name, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, userID, planName, amount, status, inv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append invoice: %w", err)
	}
	return inv, nil
}

// List returns the user's invoices, most recent first.
func (s *BillingStore) List(ctx context.Context, userID int64) ([]models.Invoice, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, plan_name, amount, status, created_at
		FROM invoices
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.PlanName, &inv.Amount, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
