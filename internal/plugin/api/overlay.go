package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// OverlayModule gives a plugin its drawable surface. The surface is created
// lazily by the provider on first use and stays keyed to the plugin id.
type OverlayModule struct {
	deps *Deps
}

// NewOverlayModule creates the overlay capability.
func NewOverlayModule(deps *Deps) *OverlayModule {
	return &OverlayModule{deps: deps}
}

// Name returns the capability name.
func (m *OverlayModule) Name() string { return "overlay" }

// RequiredPermission returns the gating permission.
func (m *OverlayModule) RequiredPermission() security.Permission {
	return security.PermissionOverlay
}

func (m *OverlayModule) surface() OverlaySurface {
	if m.deps.Overlay == nil {
		return nil
	}
	return m.deps.Overlay.Surface(m.deps.PluginID)
}

// Register attaches the overlay object to the api root.
func (m *OverlayModule) Register(rt *js.Runtime, root *goja.Object) error {
	if m.deps.Overlay == nil {
		return nil
	}
	vm := rt.VM()
	obj := vm.NewObject()
	log := m.deps.Log.Plugin(m.deps.PluginID)

	if err := obj.Set("setPosition", func(call goja.FunctionCall) goja.Value {
		m.surface().SetPosition(call.Argument(0).ToFloat(), call.Argument(1).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("setSize", func(call goja.FunctionCall) goja.Value {
		m.surface().SetSize(call.Argument(0).ToFloat(), call.Argument(1).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("rect", func(call goja.FunctionCall) goja.Value {
		x, y, w, h := m.surface().Rect()
		return vm.ToValue(map[string]any{"x": x, "y": y, "width": w, "height": h})
	}); err != nil {
		return err
	}
	if err := obj.Set("show", func(call goja.FunctionCall) goja.Value {
		m.surface().Show()
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("hide", func(call goja.FunctionCall) goja.Value {
		m.surface().Hide()
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("visible", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(m.surface().Visible())
	}); err != nil {
		return err
	}
	if err := obj.Set("draw", func(call goja.FunctionCall) goja.Value {
		kind := call.Argument(0).String()
		props := exportMap(call.Argument(1))
		id, err := m.surface().Draw(kind, props)
		if err != nil {
			log.Warn().Str("kind", kind).Err(err).Msg("overlay draw failed")
			return vm.ToValue("")
		}
		return vm.ToValue(id)
	}); err != nil {
		return err
	}
	if err := obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(m.surface().Remove(call.Argument(0).String()))
	}); err != nil {
		return err
	}
	if err := obj.Set("clear", func(call goja.FunctionCall) goja.Value {
		m.surface().Clear()
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("setEditMode", func(call goja.FunctionCall) goja.Value {
		enabled := call.Argument(0).ToBoolean()
		s := m.surface()
		s.SetEditMode(enabled)
		if !enabled {
			// Leaving edit mode pins whatever the user dragged the
			// surface to, so the rect survives a reload.
			x, y, w, h := s.Rect()
			m.deps.Config.Set("overlay.x", x)
			m.deps.Config.Set("overlay.y", y)
			m.deps.Config.Set("overlay.width", w)
			m.deps.Config.Set("overlay.height", h)
		}
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("editMode", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(m.surface().EditMode())
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
