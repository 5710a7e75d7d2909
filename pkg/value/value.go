// Package value implements the Droplet Value type: a small tagged union
// that is either an immediate (nil, bool, int, double) or a reference to a
// heap object. Values are cheap to copy; the Object variant copies only the
// reference, never the referent.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindDouble
	KindObject
)

// String names a Kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ObjectRef is a stable identifier into a heap's object store. Zero is never
// a valid reference; the heap reserves it so a zero-valued Value never
// aliases a live object by accident.
type ObjectRef uint32

// Value is copyable by value; the zero Value is Nil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	d    float64
	ref  ObjectRef
}

// Nil returns the nil Value.
func Nil() Value { return Value{kind: KindNil} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps an IEEE-754 double.
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }

// Object wraps a reference to a heap object.
func Object(ref ObjectRef) Value { return Value{kind: KindObject, ref: ref} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the Nil variant.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsObject reports whether v holds a heap reference.
func (v Value) IsObject() bool { return v.kind == KindObject }

// Bool returns the boolean payload. Only meaningful when Kind() == KindBool.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload. Only meaningful when Kind() == KindInt.
func (v Value) Int() int64 { return v.i }

// Double returns the double payload. Only meaningful when Kind() == KindDouble.
func (v Value) Double() float64 { return v.d }

// Ref returns the heap reference. Only meaningful when Kind() == KindObject.
func (v Value) Ref() ObjectRef { return v.ref }

// Truthy implements the coercion-to-bool rules from the data model:
// Nil -> false, Bool -> self, Int -> i != 0, Double -> d != 0.0,
// Object -> reference is non-null (it always is, once constructed via
// Object, so a live Object Value is always truthy).
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindDouble:
		return v.d != 0.0
	case KindObject:
		return true
	default:
		return false
	}
}

// AsFloat coerces any immediate numeric (or non-numeric, per the opcode edge
// policy of "mistyped operand coerces to 0") Value to float64. It does not
// resolve Object values — callers that need a heap object's numeric
// interpretation (there is none defined by the spec) should treat Object as
// 0 here, matching "Non-numeric operands coerce to 0".
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindDouble:
		return v.d
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// IsNumeric reports whether v is Int or Double.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindDouble
}

// ImmediateDisplay renders the immediate variants the way the interpreter's
// display rules require (used for stringifying map keys and for comparisons
// whose "textual forms match" fallback). Object variants must be resolved by
// the caller (which has the heap) before calling this; ImmediateDisplay
// panics if given an Object value, since it cannot resolve one on its own.
func (v Value) ImmediateDisplay() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindObject:
		panic("value: ImmediateDisplay called on an Object value; resolve through the heap first")
	default:
		return ""
	}
}
