package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/overglass/overglass/internal/plugin/security"
)

// Manifest describes a plugin's static declaration: identity, entry point,
// permissions and defaults. A manifest is parsed once and never mutated.
type Manifest struct {
	// Identity (required)
	ID      string `json:"id"`      // Unique identifier (e.g., "subtitle-sync")
	Name    string `json:"name"`    // Human-readable name
	Version string `json:"version"` // Semver string
	Main    string `json:"main"`    // Relative path to the entry script

	// Optional metadata
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`

	// Capabilities requested; matched case-insensitively against the
	// host's permission names.
	Permissions []string `json:"permissions,omitempty"`

	// Shared-library search paths, relative to the source directory.
	Library []string `json:"library,omitempty"`

	// URL patterns the network capability may reach. Empty or absent
	// means unrestricted.
	HTTPAllowedURLs []string `json:"http_allowed_urls,omitempty"`

	// Sparse default configuration merged under user-set values.
	DefaultConfig map[string]any `json:"defaultConfig,omitempty"`

	// Internal: directory the manifest was loaded from.
	path string
}

// ManifestFileName is the declaration document inside a plugin source dir.
const ManifestFileName = "plugin.json"

// ValidationError reports every missing or blank required field of a
// manifest in one pass. It is a structured result, never a fault.
type ValidationError struct {
	Missing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "manifest missing required fields: " + strings.Join(e.Missing, ", ")
}

// ParseManifest parses and validates manifest text. Malformed JSON yields a
// wrapped parse error; a well-formed document with missing or blank required
// fields yields a *ValidationError listing all of them.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest loads and validates a manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.path = filepath.Dir(path)
	return m, nil
}

// LoadManifestFromDir loads the manifest from a plugin source directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// Validate checks required-field presence. A field counts as missing when it
// is absent or consists only of whitespace.
func (m *Manifest) Validate() error {
	var missing []string
	if strings.TrimSpace(m.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(m.Version) == "" {
		missing = append(missing, "version")
	}
	if strings.TrimSpace(m.Main) == "" {
		missing = append(missing, "main")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Path returns the source directory the manifest was loaded from. Empty for
// manifests parsed from text.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the entry script, resolved against the
// given source directory when the manifest carries none of its own.
func (m *Manifest) MainPath(sourceDir string) string {
	if sourceDir == "" {
		sourceDir = m.path
	}
	return filepath.Join(sourceDir, filepath.FromSlash(m.Main))
}

// PermissionSet derives the immutable capability set from the declared
// permission strings.
func (m *Manifest) PermissionSet() *security.PermissionSet {
	return security.NewPermissionSet(m.Permissions)
}

// AllowsURL reports whether the network allow-list admits the URL. An absent
// list admits everything; patterns match with a trailing-* prefix rule
// (e.g. "https://api.example.com/*") or exact equality.
func (m *Manifest) AllowsURL(url string) bool {
	if len(m.HTTPAllowedURLs) == 0 {
		return true
	}
	for _, pattern := range m.HTTPAllowedURLs {
		if matchURLPattern(pattern, url) {
			return true
		}
	}
	return false
}

func matchURLPattern(pattern, url string) bool {
	if pattern == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(url, prefix)
	}
	return pattern == url
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s (%s v%s)", m.ID, m.Name, m.Version)
}

// Clone creates a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	clone := *m
	if m.Permissions != nil {
		clone.Permissions = append([]string{}, m.Permissions...)
	}
	if m.Library != nil {
		clone.Library = append([]string{}, m.Library...)
	}
	if m.HTTPAllowedURLs != nil {
		clone.HTTPAllowedURLs = append([]string{}, m.HTTPAllowedURLs...)
	}
	if m.DefaultConfig != nil {
		clone.DefaultConfig = cloneDocument(m.DefaultConfig)
	}
	return &clone
}

func cloneDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneDocument(nested)
			continue
		}
		out[k] = v
	}
	return out
}
