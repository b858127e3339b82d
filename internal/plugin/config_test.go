package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigGetSet(t *testing.T) {
	dir := t.TempDir()
	cfg := LoadConfig("p1", dir, nil)

	assert.Equal(t, "fallback", cfg.Get("missing", "fallback"))
	assert.False(t, cfg.Has("overlay.x"))

	cfg.Set("overlay.x", 42.5)
	cfg.Set("display.mode.name", "bottom")
	cfg.Set("muted", true)

	assert.Equal(t, 42.5, cfg.Get("overlay.x", nil))
	assert.Equal(t, "bottom", cfg.GetString("display.mode.name", ""))
	assert.True(t, cfg.GetBool("muted", false))
	assert.True(t, cfg.Has("overlay.x"))
}

func TestConfigPersistAndReload(t *testing.T) {
	dir := t.TempDir()

	cfg := LoadConfig("p1", dir, nil)
	cfg.Set("overlay.x", 10.0)
	cfg.SetEnabled(false)

	reloaded := LoadConfig("p1", dir, nil)
	assert.Equal(t, 10.0, reloaded.GetFloat("overlay.x", 0))
	assert.False(t, reloaded.Enabled())
}

func TestConfigRemove(t *testing.T) {
	cfg := LoadConfig("p1", t.TempDir(), nil)

	assert.False(t, cfg.Remove("never.set"))

	cfg.Set("a.b", "v")
	assert.True(t, cfg.Remove("a.b"))
	assert.False(t, cfg.Has("a.b"))
	assert.False(t, cfg.Remove("a.b"))
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := LoadConfig("p1", t.TempDir(), nil)
	cfg.Set("offset", 9.0)

	cfg.ApplyDefaults(map[string]any{
		"offset": 0.5,
		"display": map[string]any{
			"mode":  "bottom",
			"scale": 1.0,
		},
	})

	// User value wins; unset keys fill from defaults.
	assert.Equal(t, 9.0, cfg.GetFloat("offset", 0))
	assert.Equal(t, "bottom", cfg.GetString("display.mode", ""))
	assert.Equal(t, 1.0, cfg.GetFloat("display.scale", 0))
}

func TestConfigEnabledDefaultsTrue(t *testing.T) {
	cfg := LoadConfig("p1", t.TempDir(), nil)
	assert.True(t, cfg.Enabled())
}

func TestConfigMalformedFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{broken"), 0o644))

	cfg := LoadConfig("p1", dir, nil)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "def", cfg.Get("anything", "def"))
	assert.Equal(t, "p1", cfg.PluginID())
}
