package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// WindowModule exposes the floating host window. Change events
// (opacityChanged, clickThroughChanged) come from the window model's
// notify hook, which fires only on an actual value change; the module
// never emits, so each transition reaches a plugin exactly once.
type WindowModule struct {
	deps *Deps
}

// NewWindowModule creates the window capability.
func NewWindowModule(deps *Deps) *WindowModule {
	return &WindowModule{deps: deps}
}

// Name returns the capability name.
func (m *WindowModule) Name() string { return "window" }

// RequiredPermission returns the gating permission.
func (m *WindowModule) RequiredPermission() security.Permission {
	return security.PermissionWindow
}

// Register attaches the window object to the api root.
func (m *WindowModule) Register(rt *js.Runtime, root *goja.Object) error {
	w := m.deps.Window
	if w == nil {
		return nil
	}
	vm := rt.VM()
	obj := vm.NewObject()

	if err := obj.Set("opacity", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Opacity())
	}); err != nil {
		return err
	}
	if err := obj.Set("setOpacity", func(call goja.FunctionCall) goja.Value {
		w.SetOpacity(call.Argument(0).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("clickThrough", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(w.ClickThrough())
	}); err != nil {
		return err
	}
	if err := obj.Set("setClickThrough", func(call goja.FunctionCall) goja.Value {
		w.SetClickThrough(call.Argument(0).ToBoolean())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("topmost", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Topmost())
	}); err != nil {
		return err
	}
	if err := obj.Set("setTopmost", func(call goja.FunctionCall) goja.Value {
		w.SetTopmost(call.Argument(0).ToBoolean())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("bounds", func(call goja.FunctionCall) goja.Value {
		x, y, width, height := w.Bounds()
		return vm.ToValue(map[string]any{"x": x, "y": y, "width": width, "height": height})
	}); err != nil {
		return err
	}
	if err := obj.Set("setBounds", func(call goja.FunctionCall) goja.Value {
		w.SetBounds(
			int(call.Argument(0).ToInteger()),
			int(call.Argument(1).ToInteger()),
			int(call.Argument(2).ToInteger()),
			int(call.Argument(3).ToInteger()),
		)
		return goja.Undefined()
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
