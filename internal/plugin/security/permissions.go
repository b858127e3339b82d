// Package security provides the permission model and resource limits for
// the plugin runtime.
package security

import (
	"fmt"
	"strings"
)

// Permission names a capability a plugin must declare in its manifest to be
// granted the matching API surface. Comparison is case-insensitive.
type Permission string

// Capabilities plugins can request.
const (
	PermissionProfile Permission = "profile"
	PermissionOverlay Permission = "overlay"
	PermissionPlayer  Permission = "player"
	PermissionWindow  Permission = "window"
	PermissionStorage Permission = "storage"
	PermissionNetwork Permission = "network"
	PermissionEvents  Permission = "events"
	PermissionSpeech  Permission = "speech"
)

var knownPermissions = map[Permission]bool{
	PermissionProfile: true,
	PermissionOverlay: true,
	PermissionPlayer:  true,
	PermissionWindow:  true,
	PermissionStorage: true,
	PermissionNetwork: true,
	PermissionEvents:  true,
	PermissionSpeech:  true,
}

// IsKnown reports whether the permission names a capability the host
// understands. Unknown permissions in a manifest are tolerated; they simply
// never match a capability.
func IsKnown(p Permission) bool {
	return knownPermissions[Permission(strings.ToLower(string(p)))]
}

// AllPermissions returns every capability name the host understands.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(knownPermissions))
	for p := range knownPermissions {
		out = append(out, p)
	}
	return out
}

// PermissionSet is an immutable, case-insensitive set of permissions derived
// from a plugin's manifest at construction time. It is only ever used for
// read-only membership checks.
type PermissionSet struct {
	granted map[Permission]bool
}

// NewPermissionSet builds a set from manifest permission strings. Names are
// folded to lower case; duplicates and surrounding whitespace are ignored.
func NewPermissionSet(names []string) *PermissionSet {
	granted := make(map[Permission]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n == "" {
			continue
		}
		granted[Permission(n)] = true
	}
	return &PermissionSet{granted: granted}
}

// Has reports whether the permission is in the set.
func (s *PermissionSet) Has(p Permission) bool {
	if s == nil {
		return false
	}
	return s.granted[Permission(strings.ToLower(string(p)))]
}

// List returns the granted permissions.
func (s *PermissionSet) List() []Permission {
	if s == nil {
		return nil
	}
	out := make([]Permission, 0, len(s.granted))
	for p := range s.granted {
		out = append(out, p)
	}
	return out
}

// Len returns the number of granted permissions.
func (s *PermissionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.granted)
}

// PermissionError is the loud form of a permission failure, raised through
// the API surface's require helper. Silent call sites see an absent
// capability instead.
type PermissionError struct {
	PluginID   string
	Permission Permission
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("plugin %q lacks permission %q", e.PluginID, e.Permission)
}

// NewPermissionError creates a permission-denied error for a plugin.
func NewPermissionError(pluginID string, p Permission) *PermissionError {
	return &PermissionError{PluginID: pluginID, Permission: p}
}
