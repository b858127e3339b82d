package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin/api"
	"github.com/overglass/overglass/internal/plugin/security"
)

// ProfileResolver supplies the Host with profile membership and directory
// resolution. The profile manager implements it; tests supply fakes.
type ProfileResolver interface {
	// ProfileName returns the display name for a profile id.
	ProfileName(profileID string) (string, bool)

	// SubscribedPlugins lists the plugin ids subscribed to a profile.
	SubscribedPlugins(profileID string) []string

	// SourceDir resolves a plugin's read-only source directory.
	SourceDir(profileID, pluginID string) (string, error)

	// ConfigDir resolves a plugin's writable per-profile config directory.
	// It may equal the source directory in the legacy layout.
	ConfigDir(profileID, pluginID string) string
}

// PluginIssue is one per-plugin problem from a batch load.
type PluginIssue struct {
	PluginID string
	Reason   string
}

// LoadReport summarizes one LoadPluginsForProfile call.
type LoadReport struct {
	ProfileID string
	Loaded    []string
	Skipped   []PluginIssue
	Failed    []PluginIssue
}

// Host owns the only collection of live plugin Contexts. All lifecycle
// transitions run through it; profile switches fully drain the previous set
// before constructing the next.
type Host struct {
	mu sync.Mutex

	resolver ProfileResolver
	limits   security.ResourceLimits
	version  string

	overlay api.OverlayProvider
	player  api.PlayerProvider
	window  api.WindowProvider
	speech  api.SpeechProvider

	plugins map[string]*Context
	profile string

	// live is a copy-on-write view of the plugin map for Broadcast, so
	// collaborator notify hooks can fan out state changes without taking
	// the host mutex, even when the change originated inside a script
	// invocation the host is already running.
	live atomic.Pointer[[]*Context]

	log *logging.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(log *logging.Logger) HostOption {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// WithResourceLimits sets the sandbox bounds applied to every plugin.
func WithResourceLimits(limits security.ResourceLimits) HostOption {
	return func(h *Host) { h.limits = limits }
}

// WithHostVersion sets the version string exposed to plugins.
func WithHostVersion(v string) HostOption {
	return func(h *Host) { h.version = v }
}

// WithOverlayProvider wires the overlay collaborator.
func WithOverlayProvider(p api.OverlayProvider) HostOption {
	return func(h *Host) { h.overlay = p }
}

// WithPlayerProvider wires the embedded player collaborator.
func WithPlayerProvider(p api.PlayerProvider) HostOption {
	return func(h *Host) { h.player = p }
}

// WithWindowProvider wires the host window collaborator.
func WithWindowProvider(p api.WindowProvider) HostOption {
	return func(h *Host) { h.window = p }
}

// WithSpeechProvider wires the speech collaborator.
func WithSpeechProvider(p api.SpeechProvider) HostOption {
	return func(h *Host) { h.speech = p }
}

// NewHost creates a Host with no plugins loaded.
func NewHost(resolver ProfileResolver, opts ...HostOption) *Host {
	h := &Host{
		resolver: resolver,
		limits:   security.DefaultResourceLimits(),
		plugins:  make(map[string]*Context),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Component("plugin-host")
	return h
}

// LoadPluginsForProfile makes the given profile's enabled plugins the live
// set. Any previously loaded set is fully unloaded first. One plugin's
// failure never aborts the rest; everything is accounted for in the report.
func (h *Host) LoadPluginsForProfile(profileID string) (*LoadReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, ok := h.resolver.ProfileName(profileID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}

	h.unloadAllLocked()

	report := &LoadReport{ProfileID: profileID}
	info := api.ProfileInfo{ID: profileID, Name: name}

	for _, pluginID := range h.resolver.SubscribedPlugins(profileID) {
		ctx, issue, skipped := h.loadOneLocked(profileID, pluginID, info)
		switch {
		case ctx != nil:
			report.Loaded = append(report.Loaded, ctx.ID())
		case skipped:
			report.Skipped = append(report.Skipped, issue)
		default:
			report.Failed = append(report.Failed, issue)
		}
	}

	h.profile = profileID
	h.log.Info().
		Str("profile", profileID).
		Int("loaded", len(report.Loaded)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("profile plugins loaded")
	return report, nil
}

// loadOneLocked resolves, constructs and loads one plugin. A nil Context
// with a populated issue means the plugin did not come up; skipped marks
// deliberate non-loads (validation failure, disabled, duplicate id) as
// opposed to script failures.
func (h *Host) loadOneLocked(profileID, pluginID string, info api.ProfileInfo) (ctx *Context, issue PluginIssue, skipped bool) {
	sourceDir, err := h.resolver.SourceDir(profileID, pluginID)
	if err != nil {
		h.log.Warn().Str("plugin", pluginID).Err(err).Msg("source dir unresolved")
		return nil, PluginIssue{PluginID: pluginID, Reason: err.Error()}, false
	}

	manifest, err := LoadManifestFromDir(sourceDir)
	if err != nil {
		h.log.Warn().Str("plugin", pluginID).Err(err).Msg("manifest rejected")
		return nil, PluginIssue{PluginID: pluginID, Reason: err.Error()}, true
	}

	if _, exists := h.plugins[manifest.ID]; exists {
		h.log.Warn().Str("plugin", manifest.ID).Msg("duplicate plugin id")
		return nil, PluginIssue{PluginID: manifest.ID, Reason: ErrDuplicatePlugin.Error()}, true
	}

	configDir := h.resolver.ConfigDir(profileID, pluginID)
	cfg := LoadConfig(manifest.ID, configDir, h.log)
	if len(manifest.DefaultConfig) > 0 {
		cfg.ApplyDefaults(manifest.DefaultConfig)
	}
	if !cfg.Enabled() {
		h.log.Debug().Str("plugin", manifest.ID).Msg("plugin disabled, skipping")
		return nil, PluginIssue{PluginID: manifest.ID, Reason: ErrPluginDisabled.Error()}, true
	}

	ctx = NewContext(manifest, sourceDir, configDir, cfg, h.limits, h.log)
	surface := api.NewSurface(api.Deps{
		PluginID:    manifest.ID,
		HostVersion: h.version,
		Log:         h.log,
		Config:      cfg,
		Profile:     info,
		Overlay:     h.overlay,
		Player:      h.player,
		Window:      h.window,
		Speech:      h.speech,
		StorageDir:  filepath.Join(configDir, "storage"),
		AllowURL:    manifest.AllowsURL,
		Limits:      h.limits,
	}, manifest.PermissionSet())

	if !ctx.LoadScript() {
		reason := ctx.LastError()
		ctx.Dispose()
		return nil, PluginIssue{PluginID: manifest.ID, Reason: reason}, false
	}
	if !ctx.CallOnLoad(surface) {
		reason := ctx.LastError()
		ctx.Dispose()
		return nil, PluginIssue{PluginID: manifest.ID, Reason: reason}, false
	}

	h.plugins[manifest.ID] = ctx
	h.refreshLiveLocked()
	h.log.Info().Str("plugin", manifest.ID).Str("version", manifest.Version).Msg("plugin loaded")
	return ctx, PluginIssue{}, false
}

// UnloadAllPlugins unloads and disposes every live plugin and clears the
// current profile marker.
func (h *Host) UnloadAllPlugins() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloadAllLocked()
	h.profile = ""
}

func (h *Host) unloadAllLocked() {
	for id, ctx := range h.plugins {
		ctx.Dispose()
		if h.overlay != nil {
			h.overlay.Release(id)
		}
	}
	h.plugins = make(map[string]*Context)
	h.refreshLiveLocked()
}

// UnsubscribePlugin unloads one plugin and deletes its config directory.
// The source directory is never touched. Absent plugins are a no-op
// success; a deletion failure is returned but the in-memory unload is not
// rolled back.
func (h *Host) UnsubscribePlugin(pluginID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, ok := h.plugins[pluginID]
	if !ok {
		return nil
	}

	ctx.Dispose()
	delete(h.plugins, pluginID)
	h.refreshLiveLocked()
	if h.overlay != nil {
		h.overlay.Release(pluginID)
	}

	configDir := ctx.ConfigDir()
	if err := os.RemoveAll(configDir); err != nil {
		h.log.Error().Str("plugin", pluginID).Str("dir", configDir).Err(err).Msg("config dir deletion failed")
		return fmt.Errorf("delete config dir: %w", err)
	}
	h.log.Info().Str("plugin", pluginID).Msg("plugin unsubscribed")
	return nil
}

// subscribedLocked reports whether the plugin id belongs to the active
// profile's subscription list.
func (h *Host) subscribedLocked(pluginID string) bool {
	for _, id := range h.resolver.SubscribedPlugins(h.profile) {
		if id == pluginID {
			return true
		}
	}
	return false
}

// EnablePlugin marks a plugin enabled and loads it when a profile is
// active and it is not already live. Only plugins subscribed to the
// active profile may join the live set.
func (h *Host) EnablePlugin(pluginID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ctx, ok := h.plugins[pluginID]; ok {
		ctx.Config().SetEnabled(true)
		return nil
	}
	if h.profile == "" {
		return ErrNoActiveProfile
	}
	if !h.subscribedLocked(pluginID) {
		return fmt.Errorf("%w: %s", ErrPluginNotSubscribed, pluginID)
	}

	name, _ := h.resolver.ProfileName(h.profile)
	configDir := h.resolver.ConfigDir(h.profile, pluginID)
	cfg := LoadConfig(pluginID, configDir, h.log)
	cfg.SetEnabled(true)

	ctx, issue, _ := h.loadOneLocked(h.profile, pluginID, api.ProfileInfo{ID: h.profile, Name: name})
	if ctx == nil {
		return fmt.Errorf("enable %s: %s", pluginID, issue.Reason)
	}
	return nil
}

// DisablePlugin marks a plugin disabled and unloads it if live.
func (h *Host) DisablePlugin(pluginID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ctx, ok := h.plugins[pluginID]; ok {
		ctx.Config().SetEnabled(false)
		ctx.Dispose()
		delete(h.plugins, pluginID)
		h.refreshLiveLocked()
		if h.overlay != nil {
			h.overlay.Release(pluginID)
		}
		return nil
	}
	if h.profile == "" {
		return ErrNoActiveProfile
	}
	if !h.subscribedLocked(pluginID) {
		return fmt.Errorf("%w: %s", ErrPluginNotSubscribed, pluginID)
	}

	configDir := h.resolver.ConfigDir(h.profile, pluginID)
	cfg := LoadConfig(pluginID, configDir, h.log)
	cfg.SetEnabled(false)
	return nil
}

// Broadcast emits an event on every live plugin's bus. Listener failures
// are contained inside each bus. Broadcast never takes the host mutex, so
// it is safe to call from a collaborator notify hook fired inside a script
// invocation, or from another goroutine such as the settings bridge.
func (h *Host) Broadcast(event string, data map[string]any) {
	for _, ctx := range h.snapshot() {
		if s := ctx.Surface(); s != nil {
			s.Events().Emit(event, data)
		}
	}
}

// Plugin returns a live Context by id.
func (h *Host) Plugin(pluginID string) (*Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, ok := h.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginID)
	}
	return ctx, nil
}

// PluginIDs lists the live plugin ids in sorted order.
func (h *Host) PluginIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.plugins))
	for id := range h.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live plugins.
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.plugins)
}

// CurrentProfile returns the active profile id, "" when none.
func (h *Host) CurrentProfile() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile
}

func (h *Host) snapshot() []*Context {
	if list := h.live.Load(); list != nil {
		return *list
	}
	return nil
}

// refreshLiveLocked rebuilds the copy-on-write broadcast view. Must be
// called with the mutex held after any change to the plugin map.
func (h *Host) refreshLiveLocked() {
	list := make([]*Context, 0, len(h.plugins))
	for _, ctx := range h.plugins {
		list = append(list, ctx)
	}
	h.live.Store(&list)
}
