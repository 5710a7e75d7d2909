package vm

import "github.com/droplet-lang/lang/pkg/value"

// dispatchStringConcat implements STRING_CONCAT: pops b then a. A
// non-String operand falls back to its display form rather than failing
// outright — concatenation has an obvious total extension, so this is
// friendlier than pinning it to the empty-string fallback the way
// STRING_SUBSTR/STRING_GET_CHAR do for genuinely malformed operands.
func (v *VM) dispatchStringConcat() {
	b := v.pop()
	a := v.pop()
	v.push(value.Object(v.Heap.AllocateString(v.displayOf(a) + v.displayOf(b))))
}

// dispatchStringLength implements STRING_LENGTH: pops a, pushes its byte
// length as Int, or 0 if a isn't a String.
func (v *VM) dispatchStringLength() {
	a := v.pop()
	s, ok := v.stringOperand(a)
	if !ok {
		v.diag.errorf("STRING_LENGTH: operand is not a String")
		v.push(value.Int(0))
		return
	}
	v.push(value.Int(int64(len(s))))
}

// dispatchStringSubstr implements STRING_SUBSTR start len: pops the string.
// A start past the end yields the empty string, and a length running past
// the end is cut at the end of the string, instead of failing.
func (v *VM) dispatchStringSubstr(start, length uint32) {
	a := v.pop()
	s, ok := v.stringOperand(a)
	if !ok {
		v.diag.errorf("STRING_SUBSTR: operand is not a String")
		v.push(value.Object(v.Heap.AllocateString("")))
		return
	}
	st := int(start)
	if st < 0 || st > len(s) {
		v.push(value.Object(v.Heap.AllocateString("")))
		return
	}
	end := st + int(length)
	if end > len(s) {
		end = len(s)
	}
	v.push(value.Object(v.Heap.AllocateString(s[st:end])))
}

// dispatchStringEq implements STRING_EQ: pops b then a, pushes true only
// if both are Strings with identical contents.
func (v *VM) dispatchStringEq() {
	b := v.pop()
	a := v.pop()
	sa, okA := v.stringOperand(a)
	sb, okB := v.stringOperand(b)
	v.push(value.Bool(okA && okB && sa == sb))
}

// dispatchStringGetChar implements STRING_GET_CHAR: pops index then
// string, pushes the single-byte substring at index, or "" out of range.
func (v *VM) dispatchStringGetChar() {
	idx := v.pop()
	a := v.pop()
	s, ok := v.stringOperand(a)
	if !ok {
		v.diag.errorf("STRING_GET_CHAR: operand is not a String")
		v.push(value.Object(v.Heap.AllocateString("")))
		return
	}
	i := int(idx.AsFloat())
	if i < 0 || i >= len(s) {
		v.push(value.Object(v.Heap.AllocateString("")))
		return
	}
	v.push(value.Object(v.Heap.AllocateString(s[i : i+1])))
}

func (v *VM) stringOperand(val value.Value) (string, bool) {
	if !val.IsObject() {
		return "", false
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return "", false
	}
	return asString(obj)
}
