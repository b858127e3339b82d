package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overglass/overglass/internal/plugin/js"
	"github.com/overglass/overglass/internal/plugin/security"
)

// mapStore is an in-memory ConfigStore for surface tests.
type mapStore struct {
	values map[string]any
}

func newMapStore() *mapStore {
	return &mapStore{values: make(map[string]any)}
}

func (s *mapStore) Get(key string, def any) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *mapStore) Set(key string, value any) { s.values[key] = value }

func (s *mapStore) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *mapStore) Remove(key string) bool {
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// fakeSurface records overlay calls.
type fakeSurface struct {
	x, y, w, h float64
	visible    bool
	editMode   bool
	elements   map[string]string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{elements: make(map[string]string)}
}

func (f *fakeSurface) SetPosition(x, y float64)   { f.x, f.y = x, y }
func (f *fakeSurface) SetSize(w, h float64)       { f.w, f.h = w, h }
func (f *fakeSurface) Rect() (x, y, w, h float64) { return f.x, f.y, f.w, f.h }
func (f *fakeSurface) Show()                      { f.visible = true }
func (f *fakeSurface) Hide()                      { f.visible = false }
func (f *fakeSurface) Visible() bool              { return f.visible }
func (f *fakeSurface) Clear()                     { f.elements = make(map[string]string) }
func (f *fakeSurface) SetEditMode(enabled bool)   { f.editMode = enabled }
func (f *fakeSurface) EditMode() bool             { return f.editMode }

func (f *fakeSurface) Remove(id string) bool {
	_, ok := f.elements[id]
	delete(f.elements, id)
	return ok
}

func (f *fakeSurface) Draw(kind string, props map[string]any) (string, error) {
	id := "el-" + kind
	f.elements[id] = kind
	return id, nil
}

type fakeOverlayProvider struct {
	surface *fakeSurface
}

func (p *fakeOverlayProvider) Surface(pluginID string) OverlaySurface { return p.surface }
func (p *fakeOverlayProvider) Release(pluginID string)                {}

func newTestSurface(t *testing.T, perms []string, mutate func(*Deps)) (*Surface, *js.Runtime) {
	t.Helper()

	deps := Deps{
		PluginID:    "test-plugin",
		HostVersion: "1.0.0-test",
		Config:      newMapStore(),
		Overlay:     &fakeOverlayProvider{surface: newFakeSurface()},
		StorageDir:  t.TempDir(),
		Limits:      security.DefaultResourceLimits(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	s := NewSurface(deps, security.NewPermissionSet(perms))
	rt := js.NewRuntime()
	t.Cleanup(rt.Close)
	require.NoError(t, s.Inject(rt))
	return s, rt
}

func evalString(t *testing.T, rt *js.Runtime, src string) string {
	t.Helper()
	v, err := rt.RunScript("test.js", src)
	require.NoError(t, err)
	return v.String()
}

func TestSurfaceGating(t *testing.T) {
	_, rt := newTestSurface(t, []string{"overlay", "events"}, nil)

	assert.Equal(t, "object", evalString(t, rt, `typeof og.overlay`))
	assert.Equal(t, "object", evalString(t, rt, `typeof og.events`))
	assert.Equal(t, "undefined", evalString(t, rt, `typeof og.network`))
	assert.Equal(t, "undefined", evalString(t, rt, `typeof og.storage`))
	assert.Equal(t, "undefined", evalString(t, rt, `typeof og.speech`))

	// Unconditional capabilities need no permission.
	assert.Equal(t, "object", evalString(t, rt, `typeof og.core`))
	assert.Equal(t, "object", evalString(t, rt, `typeof og.config`))
}

func TestSurfaceIdentity(t *testing.T) {
	_, rt := newTestSurface(t, nil, nil)

	assert.Equal(t, "test-plugin", evalString(t, rt, `og.pluginId`))
	assert.Equal(t, "1.0.0-test", evalString(t, rt, `og.version`))
	assert.Equal(t, "1.0.0-test", evalString(t, rt, `og.core.hostVersion`))
}

func TestSurfaceRequire(t *testing.T) {
	_, rt := newTestSurface(t, []string{"overlay"}, nil)

	assert.Equal(t, "object", evalString(t, rt, `typeof og.require("overlay")`))

	// A missing permission throws a catchable typed error.
	got := evalString(t, rt, `
		var msg = "no error";
		try { og.require("network"); } catch (e) { msg = String(e); }
		msg
	`)
	assert.Contains(t, got, "network")
	assert.Contains(t, got, "test-plugin")
}

func TestSurfaceGatingCaseInsensitive(t *testing.T) {
	_, rt := newTestSurface(t, []string{"OVERLAY"}, nil)
	assert.Equal(t, "object", evalString(t, rt, `typeof og.overlay`))
}

func TestConfigCapability(t *testing.T) {
	store := newMapStore()
	_, rt := newTestSurface(t, nil, func(d *Deps) { d.Config = store })

	evalString(t, rt, `og.config.set("display.mode", "bottom")`)
	assert.Equal(t, "bottom", store.values["display.mode"])

	assert.Equal(t, "bottom", evalString(t, rt, `og.config.get("display.mode")`))
	assert.Equal(t, "fallback", evalString(t, rt, `og.config.get("missing", "fallback")`))
	assert.Equal(t, "true", evalString(t, rt, `String(og.config.has("display.mode"))`))
	assert.Equal(t, "true", evalString(t, rt, `String(og.config.remove("display.mode"))`))
	assert.Equal(t, "false", evalString(t, rt, `String(og.config.has("display.mode"))`))
}

func TestEventsCapability(t *testing.T) {
	s, rt := newTestSurface(t, []string{"events"}, nil)

	_, err := rt.RunScript("test.js", `
		var seen = [];
		var sub = og.events.on("timeUpdate", function (data) {
			seen.push(data.currentTime);
		});
	`)
	require.NoError(t, err)

	// Host-side broadcast reaches the script listener.
	s.Events().Emit("timeUpdate", map[string]any{"currentTime": 3.5})
	assert.Equal(t, "3.5", evalString(t, rt, `String(seen[0])`))

	// Script-side emit dispatches re-entrantly.
	evalString(t, rt, `og.events.emit("timeUpdate", {currentTime: 7})`)
	assert.Equal(t, "2", evalString(t, rt, `String(seen.length)`))

	evalString(t, rt, `og.events.off(sub)`)
	s.Events().Emit("timeUpdate", map[string]any{"currentTime": 9})
	assert.Equal(t, "2", evalString(t, rt, `String(seen.length)`))
}

func TestEventsListenerExceptionContained(t *testing.T) {
	s, rt := newTestSurface(t, []string{"events"}, nil)

	_, err := rt.RunScript("test.js", `
		var ok = 0;
		og.events.on("x", function () { throw new Error("listener bug"); });
		og.events.on("x", function () { ok++; });
	`)
	require.NoError(t, err)

	s.Events().Emit("x", nil)
	assert.Equal(t, "1", evalString(t, rt, `String(ok)`))
}

func TestOverlayCapability(t *testing.T) {
	fake := newFakeSurface()
	store := newMapStore()
	_, rt := newTestSurface(t, []string{"overlay"}, func(d *Deps) {
		d.Overlay = &fakeOverlayProvider{surface: fake}
		d.Config = store
	})

	evalString(t, rt, `og.overlay.setPosition(10, 20)`)
	evalString(t, rt, `og.overlay.setSize(300, 150)`)
	evalString(t, rt, `og.overlay.show()`)

	assert.Equal(t, 10.0, fake.x)
	assert.Equal(t, 150.0, fake.h)
	assert.True(t, fake.visible)

	id := evalString(t, rt, `og.overlay.draw("text", {value: "hi"})`)
	assert.True(t, strings.HasPrefix(id, "el-"))
	assert.Equal(t, "true", evalString(t, rt, `String(og.overlay.remove("`+id+`"))`))

	// Leaving edit mode persists the rect.
	evalString(t, rt, `og.overlay.setEditMode(true)`)
	evalString(t, rt, `og.overlay.setEditMode(false)`)
	assert.Equal(t, 10.0, store.values["overlay.x"])
	assert.Equal(t, 300.0, store.values["overlay.width"])
}

func TestRemoveDetachesGlobal(t *testing.T) {
	s, rt := newTestSurface(t, []string{"events"}, nil)

	_, err := rt.RunScript("test.js", `og.events.on("x", function () {})`)
	require.NoError(t, err)
	require.Equal(t, 1, s.Events().ListenerCount("x"))

	s.Remove(rt)
	assert.Equal(t, "undefined", evalString(t, rt, `typeof og`))
	assert.Zero(t, s.Events().ListenerCount("x"))
}
