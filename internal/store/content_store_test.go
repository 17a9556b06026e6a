package store

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "landing-page", NormalizeKey("Landing Page"))
	assert.Equal(t, "pricing", NormalizeKey("pricing"))
	assert.Equal(t, "faq-v2", NormalizeKey("FAQ v2"))
}

func TestContentCache_RoundTrip(t *testing.T) {
	s := NewContentStore(nil, t.TempDir())

	body := json.RawMessage(`{"headline":"Classify any product in seconds"}`)
	require.NoError(t, s.writeCache(&models.SiteContent{Key: "landing-page", Body: body}))

	cached, err := s.readCache("landing-page")
	require.NoError(t, err)
	assert.Equal(t, "landing-page", cached.Key)
	assert.JSONEq(t, string(body), string(cached.Body))
}

func TestContentCache_MissingAndCorrupt(t *testing.T) {
	s := NewContentStore(nil, t.TempDir())

	_, err := s.readCache("nothing-here")
	assert.Error(t, err)

	require.NoError(t, s.writeCache(&models.SiteContent{Key: "broken", Body: json.RawMessage(`{"ok":true}`)}))
	// Corrupt the file behind the store's back.
	require.NoError(t, os.WriteFile(s.cachePath("broken"), []byte("{{not json"), 0o644))
	_, err = s.readCache("broken")
	assert.Error(t, err)
}
