package api

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// CoreModule is the unconditional capability every plugin gets: log
// passthrough to the host log and read-only host identity.
type CoreModule struct {
	deps *Deps
}

// NewCoreModule creates the core capability.
func NewCoreModule(deps *Deps) *CoreModule {
	return &CoreModule{deps: deps}
}

// Name returns the capability name.
func (m *CoreModule) Name() string { return "core" }

// RequiredPermission returns "" since core is always available.
func (m *CoreModule) RequiredPermission() security.Permission { return "" }

// Register attaches the core object to the api root.
func (m *CoreModule) Register(rt *js.Runtime, root *goja.Object) error {
	vm := rt.VM()
	obj := vm.NewObject()
	log := m.deps.Log.Plugin(m.deps.PluginID)

	if err := obj.Set("log", func(call goja.FunctionCall) goja.Value {
		log.Info().Msg(joinArgs(call))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("warn", func(call goja.FunctionCall) goja.Value {
		log.Warn().Msg(joinArgs(call))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("error", func(call goja.FunctionCall) goja.Value {
		log.Error().Msg(joinArgs(call))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("hostVersion", m.deps.HostVersion); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}

func joinArgs(call goja.FunctionCall) string {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
