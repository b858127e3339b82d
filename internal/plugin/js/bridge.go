package js

import (
	"fmt"
	"math"

	"github.com/dop251/goja"
)

// Kind tags a value crossing the sandbox boundary.
type Kind int

// Boundary value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the explicit tagged representation of a script value held by host
// code. Host-exposed functions never keep engine-native values; everything
// crossing the boundary is converted through this type so no runtime
// representation leaks past the sandbox.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	List []Value
	Map  map[string]Value
}

// Null returns the null boundary value.
func Null() Value { return Value{Kind: KindNull} }

// Boolean wraps a bool.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number wraps a float64.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{Kind: KindString, Str: s} }

// FromGo converts a loosely-typed Go value (the JSON object model plus Go
// numerics) into a tagged value. Unconvertible values become their string
// form rather than failing.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case bool:
		return Boolean(val)
	case int:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case uint:
		return Number(float64(val))
	case uint64:
		return Number(float64(val))
	case float32:
		return Number(float64(val))
	case float64:
		return Number(val)
	case string:
		return Text(val)
	case []any:
		list := make([]Value, len(val))
		for i, item := range val {
			list[i] = FromGo(item)
		}
		return Value{Kind: KindList, List: list}
	case []string:
		list := make([]Value, len(val))
		for i, item := range val {
			list[i] = Text(item)
		}
		return Value{Kind: KindList, List: list}
	case map[string]any:
		m := make(map[string]Value, len(val))
		for k, item := range val {
			m[k] = FromGo(item)
		}
		return Value{Kind: KindMap, Map: m}
	case Value:
		return val
	default:
		return Text(fmt.Sprintf("%v", val))
	}
}

// FromGoja converts an engine value into a tagged value via the engine's
// export path.
func FromGoja(v goja.Value) Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Null()
	}
	return FromGo(v.Export())
}

// ToGo converts a tagged value back to the loosely-typed JSON object model.
func (v Value) ToGo() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.ToGo()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.ToGo()
		}
		return out
	default:
		return nil
	}
}

// IsTruthy applies ECMAScript truthiness to the tagged value.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindString:
		return v.Str != ""
	case KindList, KindMap:
		return true
	default:
		return false
	}
}

// AsInt returns the value as an int when it is a whole number.
func (v Value) AsInt() (int, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	if v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
		return 0, false
	}
	return int(v.Num), true
}
