package plugin

import "errors"

// Plugin runtime errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrDuplicatePlugin is returned when a profile subscribes the same
	// plugin id twice; the second occurrence is skipped.
	ErrDuplicatePlugin = errors.New("duplicate plugin id in profile")

	// ErrPluginDisabled is returned when a plugin is individually disabled
	// in its config.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrContextDisposed is returned when using a disposed context.
	ErrContextDisposed = errors.New("plugin context is disposed")

	// ErrNoActiveProfile is returned by operations that require a loaded
	// profile.
	ErrNoActiveProfile = errors.New("no active profile")

	// ErrProfileNotFound is returned when a profile id is unknown to the
	// resolver.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrPluginNotSubscribed is returned when an enable or disable names a
	// plugin the active profile is not subscribed to; only subscribed
	// plugins may enter the live set.
	ErrPluginNotSubscribed = errors.New("plugin not subscribed to active profile")
)
