package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// PlanStore persists the admin-editable plan catalog.
type PlanStore struct {
	DB *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{DB: db}
}

// Seed inserts the default catalog for any plan id not present yet, so a
// fresh database serves plans without admin setup and admin edits survive
// restarts.
func (s *PlanStore) Seed(ctx context.Context) error {
	for _, p := range models.DefaultPlans {
		features, err := json.Marshal(p.Features)
		if err != nil {
			return err
		}
		now := time.Now()
		_, err = s.DB.ExecContext(ctx, `
			INSERT IGNORE INTO plans (id, name, price, tier, credits, features, popular, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Price, p.Tier, p.Credits, features, p.Popular, now, now,
		)
		if err != nil {
			return fmt.Errorf("seed plan %s: %w", p.ID, err)
		}
	}
	return nil
}

// List returns the catalog ordered by tier.
func (s *PlanStore) List(ctx context.Context) ([]models.Plan, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, price, tier, credits, features, popular, created_at, updated_at
		FROM plans ORDER BY tier ASC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		var p models.Plan
		var features []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Tier, &p.Credits, &features, &p.Popular, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, fmt.Errorf("decode plan %s features: %w", p.ID, err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Get returns one catalog entry.
func (s *PlanStore) Get(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	var features []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, price, tier, credits, features, popular, created_at, updated_at
		FROM plans WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Tier, &p.Credits, &features, &p.Popular, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, fmt.Errorf("decode plan %s features: %w", p.ID, err)
	}
	return &p, nil
}

// Upsert creates or replaces a catalog entry.
func (s *PlanStore) Upsert(ctx context.Context, p models.Plan) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO plans (id, name, price, tier, credits, features, popular, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), price = VALUES(price), tier = VALUES(tier),
			credits = VALUES(credits), features = VALUES(features),
			popular = VALUES(popular), updated_at = VALUES(updated_at)`,
		p.ID, p.Name, p.Price, p.Tier, p.Credits, features, p.Popular, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

// Delete removes a catalog entry. The free plan cannot be deleted: every
// cancellation downgrades onto it.
func (s *PlanStore) Delete(ctx context.Context, id string) error {
	if id == models.PlanFree {
		return fmt.Errorf("the %s plan cannot be deleted", models.PlanFree)
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
