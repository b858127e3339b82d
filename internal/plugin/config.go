package plugin

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/overglass/overglass/internal/logging"
)

// ConfigFileName is the settings document inside a plugin config directory.
const ConfigFileName = "config.json"

// Config is the per-(profile, plugin) settings store. Keys are dotted paths
// into the document's "settings" object ("overlay.x", "display.mode.name");
// values are the loose JSON types. Every successful mutation auto-persists;
// a persistence failure is logged and the in-memory document remains
// authoritative until the next successful save.
type Config struct {
	mu       sync.Mutex
	pluginID string
	path     string
	raw      []byte
	log      *logging.Logger
}

// LoadConfig loads the plugin's config document from its config directory,
// creating an empty one when the file is absent or malformed.
func LoadConfig(pluginID, configDir string, log *logging.Logger) *Config {
	if log == nil {
		log = logging.Nop()
	}
	c := &Config{
		pluginID: pluginID,
		path:     filepath.Join(configDir, ConfigFileName),
		log:      log.Plugin(pluginID),
	}

	data, err := os.ReadFile(c.path)
	if err == nil && gjson.ValidBytes(data) && gjson.GetBytes(data, "pluginId").Exists() {
		c.raw = data
		return c
	}
	if err == nil {
		c.log.Warn().Str("path", c.path).Msg("malformed plugin config, starting empty")
	}

	c.raw = []byte(`{}`)
	c.raw, _ = sjson.SetBytes(c.raw, "pluginId", pluginID)
	c.raw, _ = sjson.SetBytes(c.raw, "enabled", true)
	c.raw, _ = sjson.SetBytes(c.raw, "settings", map[string]any{})
	return c
}

func settingsPath(key string) string {
	return "settings." + key
}

// Get returns the value at the dotted path, or def when unset.
func (c *Config) Get(key string, def any) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := gjson.GetBytes(c.raw, settingsPath(key))
	if !res.Exists() {
		return def
	}
	return res.Value()
}

// GetString returns a string value, or def when unset or not a string.
func (c *Config) GetString(key, def string) string {
	if v, ok := c.Get(key, nil).(string); ok {
		return v
	}
	return def
}

// GetFloat returns a numeric value, or def when unset or not a number.
func (c *Config) GetFloat(key string, def float64) float64 {
	if v, ok := c.Get(key, nil).(float64); ok {
		return v
	}
	return def
}

// GetBool returns a boolean value, or def when unset or not a boolean.
func (c *Config) GetBool(key string, def bool) bool {
	if v, ok := c.Get(key, nil).(bool); ok {
		return v
	}
	return def
}

// Has reports whether the dotted path has a value.
func (c *Config) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gjson.GetBytes(c.raw, settingsPath(key)).Exists()
}

// Set stores a value at the dotted path and persists the document.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	updated, err := sjson.SetBytes(c.raw, settingsPath(key), value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("config set failed")
		return
	}
	c.raw = updated
	c.persist()
}

// Remove deletes the value at the dotted path. Returns false when the path
// had no value; deletion persists on success.
func (c *Config) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !gjson.GetBytes(c.raw, settingsPath(key)).Exists() {
		return false
	}
	updated, err := sjson.DeleteBytes(c.raw, settingsPath(key))
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("config remove failed")
		return false
	}
	c.raw = updated
	c.persist()
	return true
}

// ApplyDefaults fills every key of the manifest's default document that has
// no user-set value. User values always win; the merge persists once.
func (c *Config) ApplyDefaults(defaults map[string]any) {
	if len(defaults) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	var walk func(prefix string, doc map[string]any)
	walk = func(prefix string, doc map[string]any) {
		for k, v := range doc {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				walk(key, nested)
				continue
			}
			if gjson.GetBytes(c.raw, settingsPath(key)).Exists() {
				continue
			}
			updated, err := sjson.SetBytes(c.raw, settingsPath(key), v)
			if err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("default merge failed")
				continue
			}
			c.raw = updated
			changed = true
		}
	}
	walk("", defaults)

	if changed {
		c.persist()
	}
}

// Enabled reports whether the plugin is individually enabled. Absent means
// enabled.
func (c *Config) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := gjson.GetBytes(c.raw, "enabled")
	if !res.Exists() {
		return true
	}
	return res.Bool()
}

// SetEnabled stores the enabled flag and persists.
func (c *Config) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	updated, err := sjson.SetBytes(c.raw, "enabled", enabled)
	if err != nil {
		c.log.Warn().Err(err).Msg("config enable toggle failed")
		return
	}
	c.raw = updated
	c.persist()
}

// PluginID returns the owning plugin id.
func (c *Config) PluginID() string {
	return c.pluginID
}

// Document returns a copy of the raw config document.
func (c *Config) Document() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte{}, c.raw...)
}

// Save writes the document to disk, creating the config directory when
// needed. Unlike the auto-persisting mutators this surfaces the error.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

// persist saves and logs any failure. Must be called with the mutex held.
func (c *Config) persist() {
	if err := c.save(); err != nil {
		c.log.Warn().Err(err).Str("path", c.path).Msg("config save failed, keeping in-memory state")
	}
}

func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, c.raw, 0o644)
}
