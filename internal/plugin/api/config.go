package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// ConfigModule gives a plugin dotted-path access to its own settings
// document. Always available; writes persist through the backing store.
type ConfigModule struct {
	deps *Deps
}

// NewConfigModule creates the config capability.
func NewConfigModule(deps *Deps) *ConfigModule {
	return &ConfigModule{deps: deps}
}

// Name returns the capability name.
func (m *ConfigModule) Name() string { return "config" }

// RequiredPermission returns "" since config is always available.
func (m *ConfigModule) RequiredPermission() security.Permission { return "" }

// Register attaches the config object to the api root.
func (m *ConfigModule) Register(rt *js.Runtime, root *goja.Object) error {
	vm := rt.VM()
	obj := vm.NewObject()
	store := m.deps.Config

	if err := obj.Set("get", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		var def any
		if len(call.Arguments) > 1 {
			def = call.Argument(1).Export()
		}
		return vm.ToValue(store.Get(key, def))
	}); err != nil {
		return err
	}
	if err := obj.Set("set", func(call goja.FunctionCall) goja.Value {
		store.Set(call.Argument(0).String(), call.Argument(1).Export())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(store.Has(call.Argument(0).String()))
	}); err != nil {
		return err
	}
	if err := obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(store.Remove(call.Argument(0).String()))
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
