package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// SpeechModule forwards to the host speech synthesizer.
type SpeechModule struct {
	deps *Deps
}

// NewSpeechModule creates the speech capability.
func NewSpeechModule(deps *Deps) *SpeechModule {
	return &SpeechModule{deps: deps}
}

// Name returns the capability name.
func (m *SpeechModule) Name() string { return "speech" }

// RequiredPermission returns the gating permission.
func (m *SpeechModule) RequiredPermission() security.Permission {
	return security.PermissionSpeech
}

// Register attaches the speech object to the api root.
func (m *SpeechModule) Register(rt *js.Runtime, root *goja.Object) error {
	sp := m.deps.Speech
	if sp == nil {
		return nil
	}
	vm := rt.VM()
	obj := vm.NewObject()
	log := m.deps.Log.Plugin(m.deps.PluginID)

	if err := obj.Set("speak", func(call goja.FunctionCall) goja.Value {
		text := call.Argument(0).String()
		opts := exportMap(call.Argument(1))
		if err := sp.Speak(text, opts); err != nil {
			log.Warn().Err(err).Msg("speech synthesis failed")
			return vm.ToValue(false)
		}
		return vm.ToValue(true)
	}); err != nil {
		return err
	}
	if err := obj.Set("stop", func(call goja.FunctionCall) goja.Value {
		sp.Stop()
		return goja.Undefined()
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
