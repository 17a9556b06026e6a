package models

import (
	"encoding/json"
	"time"
)

// SiteContent is one admin-editable content blob, keyed by a slug. The body
// is opaque JSON; the server stores and serves it without interpreting it.
type SiteContent struct {
	Key       string          `json:"key" db:"content_key"`
	Body      json.RawMessage `json:"body" db:"body"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}
