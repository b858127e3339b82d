package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// ProfileModule exposes the active profile's read-only identity.
type ProfileModule struct {
	deps *Deps
}

// NewProfileModule creates the profile capability.
func NewProfileModule(deps *Deps) *ProfileModule {
	return &ProfileModule{deps: deps}
}

// Name returns the capability name.
func (m *ProfileModule) Name() string { return "profile" }

// RequiredPermission returns the gating permission.
func (m *ProfileModule) RequiredPermission() security.Permission {
	return security.PermissionProfile
}

// Register attaches the profile object to the api root.
func (m *ProfileModule) Register(rt *js.Runtime, root *goja.Object) error {
	obj := rt.VM().NewObject()

	if err := obj.Set("id", m.deps.Profile.ID); err != nil {
		return err
	}
	if err := obj.Set("name", m.deps.Profile.Name); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
