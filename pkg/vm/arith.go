package vm

import (
	"math"

	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/value"
)

// dispatchArith implements ADD SUB MUL DIV MOD (spec.md §4.2): pop b, pop
// a, push result. If either operand is Double the result is Double; two
// Ints yield Int, except DIV which always yields Double. MOD on promoted
// operands, and Int MOD by zero, uses floating-point fmod (yielding a Double
// NaN for a zero divisor). Non-numeric operands coerce to 0 via
// value.Value.AsFloat.
func (v *VM) dispatchArith(op bytecode.Opcode) {
	b := v.pop()
	a := v.pop()

	bothInt := a.Kind() == value.KindInt && b.Kind() == value.KindInt
	af, bf := a.AsFloat(), b.AsFloat()

	if bothInt && op != bytecode.OpDiv {
		ai, bi := a.Int(), b.Int()
		switch op {
		case bytecode.OpAdd:
			v.push(value.Int(ai + bi))
		case bytecode.OpSub:
			v.push(value.Int(ai - bi))
		case bytecode.OpMul:
			v.push(value.Int(ai * bi))
		case bytecode.OpMod:
			if bi == 0 {
				v.push(value.Double(math.Mod(af, bf)))
			} else {
				v.push(value.Int(ai % bi))
			}
		}
		return
	}

	switch op {
	case bytecode.OpAdd:
		v.push(value.Double(af + bf))
	case bytecode.OpSub:
		v.push(value.Double(af - bf))
	case bytecode.OpMul:
		v.push(value.Double(af * bf))
	case bytecode.OpDiv:
		v.push(value.Double(af / bf))
	case bytecode.OpMod:
		v.push(value.Double(math.Mod(af, bf)))
	}
}

// dispatchCompare implements EQ NEQ LT GT LTE GTE (spec.md §4.2).
func (v *VM) dispatchCompare(op bytecode.Opcode) {
	b := v.pop()
	a := v.pop()

	switch op {
	case bytecode.OpEq:
		v.push(value.Bool(v.valuesEqual(a, b)))
	case bytecode.OpNeq:
		v.push(value.Bool(!v.valuesEqual(a, b)))
	case bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte:
		v.push(value.Bool(v.ordered(op, a, b)))
	}
}

// valuesEqual implements EQ/NEQ's rules: numeric-vs-numeric promotes both
// to Double; String-vs-String compares lexicographically; same-type
// non-String Objects fall back to identity; otherwise two Values are equal
// only if their Kind matches exactly and their textual forms match.
func (v *VM) valuesEqual(a, b value.Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsFloat() == b.AsFloat()
	}
	if a.IsObject() && b.IsObject() {
		objA, okA := v.Heap.Get(a.Ref())
		objB, okB := v.Heap.Get(b.Ref())
		if !okA || !okB {
			return false
		}
		if sa, ok := asString(objA); ok {
			sb, ok := asString(objB)
			return ok && sa == sb
		}
		return a.Ref() == b.Ref()
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a.ImmediateDisplay() == b.ImmediateDisplay()
}

// ordered implements LT/GT/LTE/GTE: numeric-vs-numeric promotes to Double;
// String-vs-String is lexicographic; any other pairing is an undefined
// ordering, which this spec pins to false.
func (v *VM) ordered(op bytecode.Opcode, a, b value.Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch op {
		case bytecode.OpLt:
			return af < bf
		case bytecode.OpGt:
			return af > bf
		case bytecode.OpLte:
			return af <= bf
		case bytecode.OpGte:
			return af >= bf
		}
	}
	if a.IsObject() && b.IsObject() {
		sa, okA := v.objectString(a)
		sb, okB := v.objectString(b)
		if okA && okB {
			switch op {
			case bytecode.OpLt:
				return sa < sb
			case bytecode.OpGt:
				return sa > sb
			case bytecode.OpLte:
				return sa <= sb
			case bytecode.OpGte:
				return sa >= sb
			}
		}
	}
	return false
}

func (v *VM) objectString(val value.Value) (string, bool) {
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return "", false
	}
	return asString(obj)
}
