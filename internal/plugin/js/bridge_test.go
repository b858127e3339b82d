package js

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGoRoundTrip(t *testing.T) {
	in := map[string]any{
		"name":    "timer",
		"count":   int64(3),
		"enabled": true,
		"ratio":   0.5,
		"tags":    []any{"a", "b"},
		"none":    nil,
	}

	v := FromGo(in)
	require.Equal(t, KindMap, v.Kind)

	out, ok := v.ToGo().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "timer", out["name"])
	assert.Equal(t, 3.0, out["count"], "integers normalize to float64")
	assert.Equal(t, true, out["enabled"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Nil(t, out["none"])

	// The round trip detaches: mutating the output leaves the input alone.
	out["name"] = "changed"
	assert.Equal(t, "timer", in["name"])
}

func TestFromGoUnknownTypeBecomesText(t *testing.T) {
	type opaque struct{ X int }
	v := FromGo(opaque{X: 1})
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "{1}", v.Str)
}

func TestFromGoja(t *testing.T) {
	vm := goja.New()

	assert.Equal(t, KindNull, FromGoja(nil).Kind)
	assert.Equal(t, KindNull, FromGoja(goja.Undefined()).Kind)
	assert.Equal(t, KindNull, FromGoja(goja.Null()).Kind)

	val, err := vm.RunString(`({level: 2, label: "boss"})`)
	require.NoError(t, err)
	v := FromGoja(val)
	require.Equal(t, KindMap, v.Kind)
	assert.Equal(t, "boss", v.Map["label"].Str)
	assert.Equal(t, 2.0, v.Map["level"].Num)
}

func TestValueIsTruthy(t *testing.T) {
	assert.False(t, Null().IsTruthy())
	assert.False(t, Boolean(false).IsTruthy())
	assert.True(t, Boolean(true).IsTruthy())
	assert.False(t, Number(0).IsTruthy())
	assert.True(t, Number(-1).IsTruthy())
	assert.False(t, Text("").IsTruthy())
	assert.True(t, Text("x").IsTruthy())
	assert.True(t, FromGo([]any{}).IsTruthy())
	assert.True(t, FromGo(map[string]any{}).IsTruthy())
}

func TestValueAsInt(t *testing.T) {
	n, ok := Number(42).AsInt()
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = Number(1.5).AsInt()
	assert.False(t, ok)
	_, ok = Text("42").AsInt()
	assert.False(t, ok)
}
