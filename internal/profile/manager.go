// Package profile manages named profiles and their plugin subscriptions.
// A profile is one game-specific bundle; the store persists to a yaml file
// under the profiles directory.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/overglass/overglass/internal/logging"
)

// StoreFileName is the profile store file under the profiles directory.
const StoreFileName = "profiles.yaml"

// Profile store errors.
var (
	ErrProfileExists  = errors.New("profile already exists")
	ErrProfileUnknown = errors.New("profile not found")
	ErrPluginNotInLib = errors.New("plugin not found in library or profile")
	ErrBlankProfileID = errors.New("profile id is blank")
)

// Profile is one named bundle of subscribed plugin ids.
type Profile struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Plugins []string `yaml:"plugins,omitempty"`
}

type storeFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Manager owns the profile store and resolves plugin directories for the
// host. Two layouts are supported transparently: a shared read-only library
// (<libraryDir>/<pluginID>) with per-profile config directories, and the
// legacy layout where a plugin lives entirely inside the profile directory
// (source and config are the same path).
type Manager struct {
	mu sync.Mutex

	libraryDir  string
	profilesDir string
	profiles    []Profile

	log *logging.Logger
}

// NewManager creates a manager over the given directories, loading the
// store file when present. A missing or malformed store starts empty.
func NewManager(libraryDir, profilesDir string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	m := &Manager{
		libraryDir:  libraryDir,
		profilesDir: profilesDir,
		log:         log.Component("profiles"),
	}

	data, err := os.ReadFile(m.storePath())
	if err != nil {
		return m
	}
	var sf storeFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		m.log.Warn().Err(err).Msg("profile store malformed, starting empty")
		return m
	}
	m.profiles = sf.Profiles
	return m
}

func (m *Manager) storePath() string {
	return filepath.Join(m.profilesDir, StoreFileName)
}

func (m *Manager) indexOf(profileID string) int {
	for i := range m.profiles {
		if m.profiles[i].ID == profileID {
			return i
		}
	}
	return -1
}

// save writes the store file. Failures are logged; the in-memory store
// stays authoritative.
func (m *Manager) save() {
	if err := os.MkdirAll(m.profilesDir, 0o755); err != nil {
		m.log.Error().Err(err).Msg("profiles dir create failed")
		return
	}
	data, err := yaml.Marshal(storeFile{Profiles: m.profiles})
	if err != nil {
		m.log.Error().Err(err).Msg("profile store marshal failed")
		return
	}
	if err := os.WriteFile(m.storePath(), data, 0o644); err != nil {
		m.log.Error().Err(err).Msg("profile store write failed")
	}
}

// Create adds a profile. The name defaults to the id.
func (m *Manager) Create(id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrBlankProfileID
	}
	if name == "" {
		name = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, id)
	}
	m.profiles = append(m.profiles, Profile{ID: id, Name: name})
	m.save()
	m.log.Info().Str("profile", id).Msg("profile created")
	return nil
}

// Delete removes a profile from the store. The profile's directory on disk
// is left alone; plugin config cleanup goes through the host's unsubscribe.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileUnknown, id)
	}
	m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
	m.save()
	m.log.Info().Str("profile", id).Msg("profile deleted")
	return nil
}

// List returns all profiles sorted by id.
func (m *Manager) List() []Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Profile, len(m.profiles))
	copy(out, m.profiles)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a profile by id.
func (m *Manager) Get(id string) (Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return Profile{}, false
	}
	p := m.profiles[i]
	p.Plugins = append([]string(nil), p.Plugins...)
	return p, true
}

// Subscribe adds a plugin id to a profile. Already-subscribed is a no-op.
func (m *Manager) Subscribe(profileID, pluginID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(profileID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileUnknown, profileID)
	}
	for _, id := range m.profiles[i].Plugins {
		if id == pluginID {
			return nil
		}
	}
	m.profiles[i].Plugins = append(m.profiles[i].Plugins, pluginID)
	m.save()
	m.log.Info().Str("profile", profileID).Str("plugin", pluginID).Msg("plugin subscribed")
	return nil
}

// Unsubscribe removes a plugin id from a profile. Absent is a no-op.
func (m *Manager) Unsubscribe(profileID, pluginID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(profileID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileUnknown, profileID)
	}
	plugins := m.profiles[i].Plugins
	for j, id := range plugins {
		if id == pluginID {
			m.profiles[i].Plugins = append(plugins[:j:j], plugins[j+1:]...)
			m.save()
			m.log.Info().Str("profile", profileID).Str("plugin", pluginID).Msg("plugin unsubscribed")
			return nil
		}
	}
	return nil
}

// ProfileName implements the host's resolver contract.
func (m *Manager) ProfileName(profileID string) (string, bool) {
	p, ok := m.Get(profileID)
	return p.Name, ok
}

// SubscribedPlugins implements the host's resolver contract.
func (m *Manager) SubscribedPlugins(profileID string) []string {
	p, _ := m.Get(profileID)
	return p.Plugins
}

// SourceDir resolves a plugin's source directory. The legacy per-profile
// location wins when it holds a manifest; otherwise the shared library is
// consulted.
func (m *Manager) SourceDir(profileID, pluginID string) (string, error) {
	legacy := filepath.Join(m.profilesDir, profileID, pluginID)
	if hasManifest(legacy) {
		return legacy, nil
	}
	shared := filepath.Join(m.libraryDir, pluginID)
	if hasManifest(shared) {
		return shared, nil
	}
	return "", fmt.Errorf("%w: %s", ErrPluginNotInLib, pluginID)
}

// ConfigDir resolves a plugin's writable config directory, always inside
// the profile directory. In the legacy layout this equals the source dir.
func (m *Manager) ConfigDir(profileID, pluginID string) string {
	return filepath.Join(m.profilesDir, profileID, pluginID)
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "plugin.json"))
	return err == nil && !info.IsDir()
}
