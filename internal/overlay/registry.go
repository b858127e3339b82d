// Package overlay implements the drawable surface registry consumed by the
// plugin runtime's overlay capability. Surfaces are in-process models; a
// renderer observes them through the registry's change callback.
package overlay

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin/api"
)

// ErrUnknownKind is returned for a draw primitive the renderer cannot
// represent.
var ErrUnknownKind = errors.New("unknown draw primitive")

// Primitive kinds a surface accepts.
var drawKinds = map[string]struct{}{
	"text":   {},
	"rect":   {},
	"circle": {},
	"line":   {},
	"image":  {},
}

// Element is one drawn primitive on a surface.
type Element struct {
	ID    string
	Kind  string
	Props map[string]any
}

// Registry hands out one surface per plugin id, creating them lazily.
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	onChange func(pluginID string)
	log      *logging.Logger
}

// NewRegistry creates an empty registry. The optional onChange callback
// fires after any surface mutation with the owning plugin id.
func NewRegistry(log *logging.Logger, onChange func(pluginID string)) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		surfaces: make(map[string]*Surface),
		onChange: onChange,
		log:      log.Component("overlay"),
	}
}

// Surface returns the plugin's surface, creating it on first use.
func (r *Registry) Surface(pluginID string) api.OverlaySurface {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.surfaces[pluginID]
	if !ok {
		s = newSurface(pluginID, r)
		r.surfaces[pluginID] = s
		r.log.Debug().Str("plugin", pluginID).Msg("surface created")
	}
	return s
}

// Release drops a plugin's surface and everything drawn on it.
func (r *Registry) Release(pluginID string) {
	r.mu.Lock()
	_, ok := r.surfaces[pluginID]
	delete(r.surfaces, pluginID)
	r.mu.Unlock()

	if ok {
		r.log.Debug().Str("plugin", pluginID).Msg("surface released")
		r.changed(pluginID)
	}
}

// Snapshot returns a copy of a surface's elements for rendering, nil when
// the plugin has no surface.
func (r *Registry) Snapshot(pluginID string) []Element {
	r.mu.Lock()
	s, ok := r.surfaces[pluginID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return s.snapshot()
}

func (r *Registry) changed(pluginID string) {
	if r.onChange != nil {
		r.onChange(pluginID)
	}
}

// Surface is one plugin's drawable area.
type Surface struct {
	mu sync.Mutex

	pluginID string
	registry *Registry

	x, y, w, h float64
	visible    bool
	editMode   bool

	order    []string
	elements map[string]*Element
}

func newSurface(pluginID string, registry *Registry) *Surface {
	return &Surface{
		pluginID: pluginID,
		registry: registry,
		w:        200,
		h:        100,
		elements: make(map[string]*Element),
	}
}

// SetPosition moves the surface.
func (s *Surface) SetPosition(x, y float64) {
	s.mu.Lock()
	s.x, s.y = x, y
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// SetSize resizes the surface.
func (s *Surface) SetSize(w, h float64) {
	s.mu.Lock()
	if w > 0 {
		s.w = w
	}
	if h > 0 {
		s.h = h
	}
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// Rect returns position and size.
func (s *Surface) Rect() (x, y, w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y, s.w, s.h
}

// Show makes the surface visible.
func (s *Surface) Show() {
	s.mu.Lock()
	s.visible = true
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// Hide makes the surface invisible without dropping its elements.
func (s *Surface) Hide() {
	s.mu.Lock()
	s.visible = false
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// Visible reports visibility.
func (s *Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Draw adds a primitive and returns its element handle.
func (s *Surface) Draw(kind string, props map[string]any) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if _, ok := drawKinds[kind]; !ok {
		return "", ErrUnknownKind
	}

	el := &Element{ID: uuid.NewString(), Kind: kind, Props: props}
	s.mu.Lock()
	s.elements[el.ID] = el
	s.order = append(s.order, el.ID)
	s.mu.Unlock()

	s.registry.changed(s.pluginID)
	return el.ID, nil
}

// Remove deletes one element by handle.
func (s *Surface) Remove(elementID string) bool {
	s.mu.Lock()
	_, ok := s.elements[elementID]
	if ok {
		delete(s.elements, elementID)
		for i, id := range s.order {
			if id == elementID {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if ok {
		s.registry.changed(s.pluginID)
	}
	return ok
}

// Clear removes every element.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.elements = make(map[string]*Element)
	s.order = nil
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// SetEditMode toggles user drag/resize handling for the surface.
func (s *Surface) SetEditMode(enabled bool) {
	s.mu.Lock()
	s.editMode = enabled
	s.mu.Unlock()
	s.registry.changed(s.pluginID)
}

// EditMode reports whether edit mode is active.
func (s *Surface) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

// ElementCount returns the number of drawn elements.
func (s *Surface) ElementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements)
}

func (s *Surface) snapshot() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		if el, ok := s.elements[id]; ok {
			out = append(out, *el)
		}
	}
	return out
}
