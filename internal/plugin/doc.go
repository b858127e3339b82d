// Package plugin provides the plugin runtime for Overglass.
//
// Plugins are ECMAScript packages extending the floating overlay with
// game-specific behavior. Each plugin declares itself through a plugin.json
// manifest, runs inside its own bounded engine instance, and talks to the
// host exclusively through the capability surface injected as the "og"
// global. Capabilities beyond the unconditional core and config modules are
// exposed only when the manifest declares the matching permission.
//
// # Quick Start
//
//	host := plugin.NewHost(profiles,
//	    plugin.WithLogger(log),
//	    plugin.WithOverlayProvider(overlays),
//	    plugin.WithPlayerProvider(player),
//	    plugin.WithHostVersion(version),
//	)
//
//	report, err := host.LoadPluginsForProfile("minesweeper")
//	if err != nil {
//	    log.Error().Err(err).Msg("profile load failed")
//	}
//	defer host.UnloadAllPlugins()
//
// # Plugin Structure
//
// A plugin's source directory holds its manifest and entry script:
//
//	plugins/timer/
//	    plugin.json
//	    main.js
//	    settings.json   (optional settings UI descriptor)
//
// The writable config directory (profile-scoped, possibly the same
// directory in the legacy layout) holds config.json and the storage/
// subfolder backing the storage capability.
//
// # Lifecycle
//
// Created -> ScriptLoaded -> Loaded -> Unloaded -> Disposed. The entry
// script runs at load; the optional global onLoad and onUnload hooks bracket
// the plugin's live phase. Script errors are contained at the Context
// boundary and never propagate into the host.
package plugin
