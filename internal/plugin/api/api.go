// Package api builds the capability surface injected into each plugin
// sandbox. Every sub-capability is a narrow facade over one host concern;
// gated capabilities are exposed only when the plugin's permission set
// contains the matching permission, otherwise the reference is absent.
package api

import (
	"fmt"
	"net/http"

	"github.com/dop251/goja"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// GlobalName is the identifier the surface is bound to in plugin scope.
const GlobalName = "og"

// Module is one sub-capability of the surface.
type Module interface {
	// Name is the property name under the api global (e.g. "overlay").
	Name() string

	// RequiredPermission returns the permission gating this module, or ""
	// for the unconditional capabilities.
	RequiredPermission() security.Permission

	// Register builds the module's script object and attaches it to root.
	Register(rt *js.Runtime, root *goja.Object) error
}

// ConfigStore is the settings access a surface needs; satisfied by the
// plugin config store.
type ConfigStore interface {
	Get(key string, def any) any
	Set(key string, value any)
	Has(key string) bool
	Remove(key string) bool
}

// ProfileInfo is the read-only identity of the active profile.
type ProfileInfo struct {
	ID   string
	Name string
}

// OverlaySurface is a drawable surface keyed by plugin id, created lazily
// by the host's overlay layer.
type OverlaySurface interface {
	SetPosition(x, y float64)
	SetSize(w, h float64)
	Rect() (x, y, w, h float64)
	Show()
	Hide()
	Visible() bool
	Draw(kind string, props map[string]any) (string, error)
	Remove(elementID string) bool
	Clear()
	SetEditMode(enabled bool)
	EditMode() bool
}

// OverlayProvider hands out per-plugin surfaces.
type OverlayProvider interface {
	Surface(pluginID string) OverlaySurface
	Release(pluginID string)
}

// PlayerProvider is the embedded browser surface used for video playback.
type PlayerProvider interface {
	Play()
	Pause()
	Playing() bool
	CurrentTime() float64
	Seek(seconds float64)
	Duration() float64
	Volume() float64
	SetVolume(v float64)
	Rate() float64
	SetRate(r float64)
	URL() string
	InjectScript(src string) error
}

// WindowProvider is the host window the overlay floats in.
type WindowProvider interface {
	Opacity() float64
	SetOpacity(v float64)
	ClickThrough() bool
	SetClickThrough(enabled bool)
	Topmost() bool
	SetTopmost(enabled bool)
	Bounds() (x, y, w, h int)
	SetBounds(x, y, w, h int)
}

// SpeechProvider is the host speech synthesizer.
type SpeechProvider interface {
	Speak(text string, opts map[string]any) error
	Stop()
}

// Deps carries the host collaborators one surface instance mediates. All
// fields are injected; nothing here reaches for ambient global state.
// Overlay, Player, Window and Speech must be non-nil for their capability
// to register; the app wiring supplies all of them.
type Deps struct {
	PluginID    string
	HostVersion string
	Log         *logging.Logger

	Config  ConfigStore
	Profile ProfileInfo
	Overlay OverlayProvider
	Player  PlayerProvider
	Window  WindowProvider
	Speech  SpeechProvider

	// StorageDir is the plugin-private directory for the storage
	// capability, under the plugin's config directory.
	StorageDir string

	// AllowURL enforces the manifest's network allow-list. Nil admits all.
	AllowURL func(url string) bool

	// HTTPClient overrides the network capability's client; nil uses a
	// per-call client honoring the clamped timeout.
	HTTPClient *http.Client

	Limits security.ResourceLimits
}

// Surface is the capability object graph owned by exactly one plugin
// context. It aggregates the sub-capability modules and the plugin's event
// bus.
type Surface struct {
	deps    Deps
	perms   *security.PermissionSet
	events  *EventBus
	modules []Module
}

// NewSurface builds a surface for a plugin with the given permission set.
func NewSurface(deps Deps, perms *security.PermissionSet) *Surface {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}
	s := &Surface{
		deps:   deps,
		perms:  perms,
		events: NewEventBus(deps.Log.Plugin(deps.PluginID)),
	}
	s.modules = []Module{
		NewCoreModule(&s.deps),
		NewConfigModule(&s.deps),
		NewProfileModule(&s.deps),
		NewOverlayModule(&s.deps),
		NewPlayerModule(&s.deps),
		NewWindowModule(&s.deps),
		NewStorageModule(&s.deps),
		NewNetworkModule(&s.deps),
		NewEventsModule(&s.deps, s.events),
		NewSpeechModule(&s.deps),
	}
	return s
}

// Events returns the plugin's event bus; the host uses it for broadcasts
// to the plugin.
func (s *Surface) Events() *EventBus {
	return s.events
}

// Granted reports whether the plugin declared the permission. Membership is
// tested on every access; there is no cached denied state.
func (s *Surface) Granted(p security.Permission) bool {
	return s.perms.Has(p)
}

// Inject binds the api global into the runtime's scope. Gated modules whose
// permission is absent from the plugin's set are skipped entirely, so the
// property reads as undefined from script code. Collaborator-backed modules
// (overlay, player, window, speech) additionally require their provider in
// Deps; the app wiring always supplies all four, so in a running host a
// granted permission always yields a present capability. A nil provider
// only occurs in partial assemblies such as tests.
func (s *Surface) Inject(rt *js.Runtime) error {
	vm := rt.VM()
	root := vm.NewObject()

	if err := root.Set("version", s.deps.HostVersion); err != nil {
		return err
	}
	if err := root.Set("pluginId", s.deps.PluginID); err != nil {
		return err
	}

	for _, mod := range s.modules {
		if p := mod.RequiredPermission(); p != "" && !s.perms.Has(p) {
			continue
		}
		if err := mod.Register(rt, root); err != nil {
			return fmt.Errorf("register capability %q: %w", mod.Name(), err)
		}
	}

	// require(permission) fails loudly where a silent absent capability
	// is a programming error at the call site.
	err := root.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		p := security.Permission(name)
		if !s.perms.Has(p) {
			panic(vm.NewGoError(security.NewPermissionError(s.deps.PluginID, p)))
		}
		return root.Get(name)
	})
	if err != nil {
		return err
	}

	return rt.SetGlobal(GlobalName, root)
}

// Remove detaches the api global and drops all event listeners. Called when
// the owning context unloads.
func (s *Surface) Remove(rt *js.Runtime) {
	rt.DeleteGlobal(GlobalName)
	s.events.Clear()
}

// exportMap exports a script value as a string-keyed map, or nil when the
// value is absent or not an object.
func exportMap(v goja.Value) map[string]any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	m, _ := v.Export().(map[string]any)
	return m
}
