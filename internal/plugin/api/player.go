package api

import (
	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// PlayerModule is the transport surface over the embedded browser player.
// State-change events (playStateChanged, timeUpdate, volumeChanged,
// rateChanged) come from the player model's notify hook, which the app
// fans out to every live plugin's bus; the module itself never emits, so
// a plugin sees each transition exactly once whether it caused the change
// or not.
type PlayerModule struct {
	deps *Deps
}

// NewPlayerModule creates the player capability.
func NewPlayerModule(deps *Deps) *PlayerModule {
	return &PlayerModule{deps: deps}
}

// Name returns the capability name.
func (m *PlayerModule) Name() string { return "player" }

// RequiredPermission returns the gating permission.
func (m *PlayerModule) RequiredPermission() security.Permission {
	return security.PermissionPlayer
}

// Register attaches the player object to the api root.
func (m *PlayerModule) Register(rt *js.Runtime, root *goja.Object) error {
	p := m.deps.Player
	if p == nil {
		return nil
	}
	vm := rt.VM()
	obj := vm.NewObject()
	log := m.deps.Log.Plugin(m.deps.PluginID)

	if err := obj.Set("play", func(call goja.FunctionCall) goja.Value {
		p.Play()
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("pause", func(call goja.FunctionCall) goja.Value {
		p.Pause()
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("playing", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.Playing())
	}); err != nil {
		return err
	}
	if err := obj.Set("currentTime", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.CurrentTime())
	}); err != nil {
		return err
	}
	if err := obj.Set("seek", func(call goja.FunctionCall) goja.Value {
		p.Seek(call.Argument(0).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("duration", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.Duration())
	}); err != nil {
		return err
	}
	if err := obj.Set("volume", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.Volume())
	}); err != nil {
		return err
	}
	if err := obj.Set("setVolume", func(call goja.FunctionCall) goja.Value {
		p.SetVolume(call.Argument(0).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("rate", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.Rate())
	}); err != nil {
		return err
	}
	if err := obj.Set("setRate", func(call goja.FunctionCall) goja.Value {
		p.SetRate(call.Argument(0).ToFloat())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := obj.Set("url", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(p.URL())
	}); err != nil {
		return err
	}
	if err := obj.Set("injectScript", func(call goja.FunctionCall) goja.Value {
		if err := p.InjectScript(call.Argument(0).String()); err != nil {
			log.Warn().Err(err).Msg("player script injection failed")
			return vm.ToValue(false)
		}
		return vm.ToValue(true)
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
