// Package window models the floating host window the overlay lives in.
// The platform shell mirrors this state onto the real native window; the
// plugin runtime and the settings bridge mutate it here.
package window

import (
	"sync"

	"github.com/overglass/overglass/internal/logging"
)

// Window holds the floating window's adjustable state.
type Window struct {
	mu sync.Mutex

	opacity      float64
	clickThrough bool
	topmost      bool

	x, y, w, h int

	// notify receives every state change as (event, payload) for host
	// broadcast.
	notify func(event string, data map[string]any)

	log *logging.Logger
}

// New creates a fully opaque, topmost window with a default frame.
func New(log *logging.Logger, notify func(event string, data map[string]any)) *Window {
	if log == nil {
		log = logging.Nop()
	}
	return &Window{
		opacity: 1,
		topmost: true,
		w:       480,
		h:       270,
		notify:  notify,
		log:     log.Component("window"),
	}
}

func (w *Window) emit(event string, data map[string]any) {
	if w.notify != nil {
		w.notify(event, data)
	}
}

// Opacity returns the window opacity in [0, 1].
func (w *Window) Opacity() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opacity
}

// SetOpacity sets the opacity, clamped to [0, 1]. A change is broadcast
// only when the value actually differs.
func (w *Window) SetOpacity(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	w.mu.Lock()
	changed := w.opacity != v
	w.opacity = v
	w.mu.Unlock()
	if changed {
		w.emit("opacityChanged", map[string]any{"opacity": v})
	}
}

// ClickThrough reports whether pointer events pass through the window.
func (w *Window) ClickThrough() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clickThrough
}

// SetClickThrough toggles pointer pass-through, broadcasting only on an
// actual change.
func (w *Window) SetClickThrough(enabled bool) {
	w.mu.Lock()
	changed := w.clickThrough != enabled
	w.clickThrough = enabled
	w.mu.Unlock()
	if changed {
		w.emit("clickThroughChanged", map[string]any{"enabled": enabled})
	}
}

// Topmost reports whether the window floats above all others.
func (w *Window) Topmost() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.topmost
}

// SetTopmost toggles always-on-top.
func (w *Window) SetTopmost(enabled bool) {
	w.mu.Lock()
	w.topmost = enabled
	w.mu.Unlock()
}

// Bounds returns the window frame.
func (w *Window) Bounds() (x, y, width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.x, w.y, w.w, w.h
}

// SetBounds moves and resizes the window; non-positive sizes keep the
// current dimension.
func (w *Window) SetBounds(x, y, width, height int) {
	w.mu.Lock()
	w.x, w.y = x, y
	if width > 0 {
		w.w = width
	}
	if height > 0 {
		w.h = height
	}
	w.mu.Unlock()
}
