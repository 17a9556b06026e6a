package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// ContentStore persists admin-editable site content blobs, with a local file
// cache consulted when the database read fails. The cache is a read-through
// fallback only, never authoritative.
type ContentStore struct {
	DB       *sql.DB
	CacheDir string
}

func NewContentStore(db *sql.DB, cacheDir string) *ContentStore {
	if cacheDir == "" {
		cacheDir = "content-cache"
	}
	return &ContentStore{DB: db, CacheDir: cacheDir}
}

// NormalizeKey slugs an admin-entered content name into the stored key.
func NormalizeKey(name string) string {
	return slug.Make(name)
}

// Get loads one content blob. On a database error it falls back to the
// cached file; ErrNotFound is not masked by the cache.
func (s *ContentStore) Get(ctx context.Context, key string) (*models.SiteContent, error) {
	var c models.SiteContent
	var body []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT content_key, body, updated_at FROM site_content WHERE content_key = ?`, key,
	).Scan(&c.Key, &body, &c.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		if cached, cacheErr := s.readCache(key); cacheErr == nil {
			log.Printf("content: serving %q from cache after DB error: %v", key, err)
			return cached, nil
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	c.Body = json.RawMessage(body)
	return &c, nil
}

// Put writes the blob to the database, then refreshes the cache file. A
// cache write failure is logged, not returned: the DB row is authoritative.
func (s *ContentStore) Put(ctx context.Context, key string, body json.RawMessage) (*models.SiteContent, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("content body is not valid JSON")
	}
	now := time.Now()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO site_content (content_key, body, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)`,
		key, []byte(body), now,
	)
	if err != nil {
		return nil, fmt.Errorf("put content: %w", err)
	}

	c := &models.SiteContent{Key: key, Body: body, UpdatedAt: now}
	if err := s.writeCache(c); err != nil {
		log.Printf("content: cache refresh for %q failed: %v", key, err)
	}
	return c, nil
}

func (s *ContentStore) cachePath(key string) string {
	return filepath.Join(s.CacheDir, slug.Make(key)+".json")
}

func (s *ContentStore) readCache(key string) (*models.SiteContent, error) {
	body, err := os.ReadFile(s.cachePath(key))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("cached content %q is corrupt", key)
	}
	return &models.SiteContent{Key: key, Body: body}, nil
}

func (s *ContentStore) writeCache(c *models.SiteContent) error {
	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.cachePath(c.Key), c.Body, 0o644)
}
