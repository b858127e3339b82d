package api

import (
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// EventBus is the publish/subscribe mechanism local to one plugin's
// capability surface. Event names are case-insensitive. Dispatch always
// iterates a snapshot of the listener list, so a listener mutating
// subscriptions mid-dispatch cannot corrupt iteration, and every listener
// invocation is individually recovered so one failing listener never stops
// the rest.
type EventBus struct {
	mu        sync.Mutex
	listeners map[string][]busListener
	log       *logging.Logger
}

type busListener struct {
	id   string
	once bool
	fn   func(data map[string]any)
}

// NewEventBus creates an empty bus.
func NewEventBus(log *logging.Logger) *EventBus {
	if log == nil {
		log = logging.Nop()
	}
	return &EventBus{
		listeners: make(map[string][]busListener),
		log:       log,
	}
}

// On registers a listener and returns its subscription id.
func (b *EventBus) On(event string, fn func(data map[string]any)) string {
	return b.subscribe(event, fn, false)
}

// Once registers a listener removed after its first invocation.
func (b *EventBus) Once(event string, fn func(data map[string]any)) string {
	return b.subscribe(event, fn, true)
}

func (b *EventBus) subscribe(event string, fn func(data map[string]any), once bool) string {
	key := strings.ToLower(strings.TrimSpace(event))
	if key == "" || fn == nil {
		return ""
	}
	id := uuid.NewString()

	b.mu.Lock()
	b.listeners[key] = append(b.listeners[key], busListener{id: id, once: once, fn: fn})
	b.mu.Unlock()
	return id
}

// Off removes a subscription by id. Returns true when it existed.
func (b *EventBus) Off(id string) bool {
	if id == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for event, list := range b.listeners {
		for i, l := range list {
			if l.id == id {
				b.listeners[event] = append(list[:i:i], list[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Emit dispatches an event to every listener registered at the time of the
// call.
func (b *EventBus) Emit(event string, data map[string]any) {
	key := strings.ToLower(strings.TrimSpace(event))

	b.mu.Lock()
	list := b.listeners[key]
	snapshot := make([]busListener, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, l := range snapshot {
		if l.once {
			b.Off(l.id)
		}
		b.invoke(key, l, data)
	}
}

func (b *EventBus) invoke(event string, l busListener, data map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn().Str("event", event).Interface("panic", r).Msg("event listener panicked")
		}
	}()
	// Each listener gets its own detached payload; the tagged round trip
	// severs any aliasing with the emitter's copy.
	payload, _ := js.FromGo(data).ToGo().(map[string]any)
	l.fn(payload)
}

// ListenerCount returns the number of listeners for an event.
func (b *EventBus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[strings.ToLower(strings.TrimSpace(event))])
}

// Clear drops every listener. Called on plugin unload.
func (b *EventBus) Clear() {
	b.mu.Lock()
	b.listeners = make(map[string][]busListener)
	b.mu.Unlock()
}

// EventsModule exposes the plugin's event bus to script code. Host
// broadcasts and plugin-registered callbacks both travel through it.
type EventsModule struct {
	deps *Deps
	bus  *EventBus
}

// NewEventsModule creates the events capability.
func NewEventsModule(deps *Deps, bus *EventBus) *EventsModule {
	return &EventsModule{deps: deps, bus: bus}
}

// Name returns the capability name.
func (m *EventsModule) Name() string { return "events" }

// RequiredPermission returns the gating permission.
func (m *EventsModule) RequiredPermission() security.Permission {
	return security.PermissionEvents
}

// Register attaches the events object to the api root.
func (m *EventsModule) Register(rt *js.Runtime, root *goja.Object) error {
	vm := rt.VM()
	obj := vm.NewObject()

	subscribe := func(call goja.FunctionCall, once bool) goja.Value {
		event := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			return vm.ToValue("")
		}
		handler := func(data map[string]any) {
			// Script exceptions in a listener are contained here; the
			// remaining listeners still run.
			if _, err := rt.CallFunction(fn, data); err != nil {
				m.deps.Log.Plugin(m.deps.PluginID).Warn().
					Str("event", event).
					Str("error", js.ExceptionMessage(err)).
					Msg("event listener failed")
			}
		}
		var id string
		if once {
			id = m.bus.Once(event, handler)
		} else {
			id = m.bus.On(event, handler)
		}
		return vm.ToValue(id)
	}

	if err := obj.Set("on", func(call goja.FunctionCall) goja.Value {
		return subscribe(call, false)
	}); err != nil {
		return err
	}
	if err := obj.Set("once", func(call goja.FunctionCall) goja.Value {
		return subscribe(call, true)
	}); err != nil {
		return err
	}
	if err := obj.Set("off", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(m.bus.Off(call.Argument(0).String()))
	}); err != nil {
		return err
	}
	if err := obj.Set("emit", func(call goja.FunctionCall) goja.Value {
		event := call.Argument(0).String()
		data := exportMap(call.Argument(1))
		m.bus.Emit(event, data)
		return goja.Undefined()
	}); err != nil {
		return err
	}

	return root.Set(m.Name(), obj)
}
