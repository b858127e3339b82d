// Package app wires the Overglass host together: configuration, logging,
// the profile store, the plugin host and its collaborators, and the
// settings bridge. There are no package-level singletons; everything is
// constructed here once and passed down.
package app

import (
	"context"
	"os"

	"github.com/overglass/overglass/internal/config"
	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/overlay"
	"github.com/overglass/overglass/internal/player"
	"github.com/overglass/overglass/internal/plugin"
	"github.com/overglass/overglass/internal/plugin/security"
	"github.com/overglass/overglass/internal/profile"
	"github.com/overglass/overglass/internal/settings"
	"github.com/overglass/overglass/internal/speech"
	"github.com/overglass/overglass/internal/window"
)

// Version is the host version exposed to plugins, set at build time.
var Version = "dev"

// App is the assembled Overglass host.
type App struct {
	Config   config.Config
	Log      *logging.Logger
	Profiles *profile.Manager
	Host     *plugin.Host
	Overlays *overlay.Registry
	Player   *player.Player
	Window   *window.Window
	Speech   *speech.Synthesizer
	Bridge   *settings.Bridge
}

// New builds the host from a loaded configuration.
func New(cfg config.Config) *App {
	a := &App{Config: cfg}
	a.Log = logging.New(os.Stderr, cfg.Logging.Level)

	// State changes from collaborators fan out to every live plugin's
	// event bus.
	notify := func(event string, data map[string]any) {
		if a.Host != nil {
			a.Host.Broadcast(event, data)
		}
	}

	a.Profiles = profile.NewManager(cfg.LibraryDir, cfg.ProfilesDir, a.Log)
	a.Overlays = overlay.NewRegistry(a.Log, nil)
	a.Player = player.New(a.Log, player.WithNotifier(notify))
	a.Window = window.New(a.Log, notify)
	a.Speech = speech.New(a.Log, nil, nil)

	version := Version
	if cfg.Plugins.HostVersion != "" {
		version = cfg.Plugins.HostVersion
	}

	a.Host = plugin.NewHost(a.Profiles,
		plugin.WithLogger(a.Log),
		plugin.WithResourceLimits(security.LimitsByName(cfg.Plugins.Limits)),
		plugin.WithHostVersion(version),
		plugin.WithOverlayProvider(a.Overlays),
		plugin.WithPlayerProvider(a.Player),
		plugin.WithWindowProvider(a.Window),
		plugin.WithSpeechProvider(a.Speech),
	)

	if cfg.Bridge.Enabled {
		a.Bridge = settings.NewBridge(cfg.Bridge.Addr, a.Host, a.Log)
	}
	return a
}

// Run loads the given profile (when non-empty) and serves until the
// context is cancelled. Plugins are always unloaded on the way out.
func (a *App) Run(ctx context.Context, profileID string) error {
	if profileID != "" {
		report, err := a.Host.LoadPluginsForProfile(profileID)
		if err != nil {
			return err
		}
		for _, f := range report.Failed {
			a.Log.Warn().Str("plugin", f.PluginID).Str("reason", f.Reason).Msg("plugin failed to load")
		}
	}
	defer a.Host.UnloadAllPlugins()

	if a.Bridge != nil {
		return a.Bridge.Start(ctx)
	}
	<-ctx.Done()
	return nil
}

// SwitchProfile swaps the live plugin set to another profile and tells
// subscribed plugins about the change.
func (a *App) SwitchProfile(profileID string) (*plugin.LoadReport, error) {
	report, err := a.Host.LoadPluginsForProfile(profileID)
	if err != nil {
		return nil, err
	}
	a.Host.Broadcast("profileChanged", map[string]any{"profileId": profileID})
	return report, nil
}
