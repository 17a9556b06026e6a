package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// HistoryStore is the append-only ledger of analyses performed.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{DB: db}
}

// Append records one successful classification for the user and returns the
// stored record.
func (s *HistoryStore) Append(ctx context.Context, userID int64, result models.ClassificationResult) (*models.AnalysisRecord, error) {
	rec := &models.AnalysisRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Result:    result,
		CreatedAt: time.Now(),
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis result: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO analysis_history (id, user_id, result_json, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, userID, body, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append analysis record: %w", err)
	}
	return rec, nil
}

// List returns the user's records, most recent first.
func (s *HistoryStore) List(ctx context.Context, userID int64) ([]models.AnalysisRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, result_json, created_at
		FROM analysis_history
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list analysis records: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		var body []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &body, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &rec.Result); err != nil {
			return nil, fmt.Errorf("decode analysis record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes one record. Only the owning user's rows match.
func (s *HistoryStore) Delete(ctx context.Context, userID int64, id string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM analysis_history WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete analysis record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
