package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overglass/overglass/internal/plugin/security"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"id": "subtitle-sync",
		"name": "Subtitle Sync",
		"version": "1.2.0",
		"main": "main.js",
		"description": "Keeps subtitles in sync",
		"author": "someone",
		"permissions": ["overlay", "Player"],
		"http_allowed_urls": ["https://api.example.com/*"],
		"defaultConfig": {"offset": 0.5, "display": {"mode": "bottom"}}
	}`)

	m, err := LoadManifestFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "subtitle-sync", m.ID)
	assert.Equal(t, "Subtitle Sync", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "main.js", m.Main)
	assert.Equal(t, "Keeps subtitles in sync", m.Description)
	assert.Equal(t, "someone", m.Author)
	assert.Equal(t, []string{"overlay", "Player"}, m.Permissions)
	assert.Equal(t, filepath.Join(dir, "main.js"), m.MainPath(dir))
}

func TestLoadManifestMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing []string
	}{
		{
			name:    "all required absent",
			content: `{"description": "nope"}`,
			missing: []string{"id", "name", "version", "main"},
		},
		{
			name:    "blank counts as missing",
			content: `{"id": "x", "name": "   ", "version": "1.0.0", "main": ""}`,
			missing: []string{"name", "main"},
		},
		{
			name:    "single missing",
			content: `{"id": "x", "name": "X", "main": "main.js"}`,
			missing: []string{"version"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.content))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.missing, verr.Missing)
		})
	}
}

func TestParseManifestMalformedJSON(t *testing.T) {
	_, err := ParseManifest([]byte(`{not json`))
	require.Error(t, err)

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr), "parse failure must not be a validation error")
}

func TestManifestEmptyArrayRoundTrip(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"id": "x", "name": "X", "version": "1.0.0", "main": "main.js",
		"permissions": []
	}`))
	require.NoError(t, err)

	assert.NotNil(t, m.Permissions)
	assert.Empty(t, m.Permissions)

	m2, err := ParseManifest([]byte(`{"id": "x", "name": "X", "version": "1.0.0", "main": "main.js"}`))
	require.NoError(t, err)
	assert.Nil(t, m2.Permissions)
}

func TestManifestPermissionSet(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"id": "x", "name": "X", "version": "1.0.0", "main": "main.js",
		"permissions": ["Overlay", "NETWORK"]
	}`))
	require.NoError(t, err)

	set := m.PermissionSet()
	assert.True(t, set.Has(security.PermissionOverlay))
	assert.True(t, set.Has(security.PermissionNetwork))
	assert.False(t, set.Has(security.PermissionSpeech))
}

func TestManifestAllowsURL(t *testing.T) {
	m := &Manifest{HTTPAllowedURLs: []string{
		"https://api.example.com/*",
		"https://exact.example.com/v1",
	}}

	assert.True(t, m.AllowsURL("https://api.example.com/v2/things"))
	assert.True(t, m.AllowsURL("https://exact.example.com/v1"))
	assert.False(t, m.AllowsURL("https://exact.example.com/v1/deeper"))
	assert.False(t, m.AllowsURL("https://other.example.com/"))

	// No allow-list admits everything.
	open := &Manifest{}
	assert.True(t, open.AllowsURL("https://anywhere.example.com/"))
}

func TestLoadManifestFromDirMissingFile(t *testing.T) {
	_, err := LoadManifestFromDir(t.TempDir())
	require.Error(t, err)
}
