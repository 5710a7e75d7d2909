package vm

import (
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/value"
)

// dispatch executes one decoded instruction. It reports whether the
// interpreter loop should keep running — false only for the cases §7.2
// calls fatal (an unknown opcode never reaches here; CALL/RETURN's frame
// bookkeeping is the only other source of "stop").
func (v *VM) dispatch(op bytecode.Opcode, operands []byte) bool {
	switch op {

	case bytecode.OpPush:
		v.push(v.constAt(readU32(operands, 0)))

	case bytecode.OpPop:
		v.pop()

	case bytecode.OpDup:
		v.push(v.peek(0))

	case bytecode.OpSwap:
		b := v.pop()
		a := v.pop()
		v.push(b)
		v.push(a)

	case bytecode.OpRot:
		c := v.pop()
		b := v.pop()
		a := v.pop()
		v.push(b)
		v.push(c)
		v.push(a)

	case bytecode.OpLoadLocal:
		v.dispatchLoadLocal(readU8(operands, 0))

	case bytecode.OpStoreLocal:
		v.dispatchStoreLocal(readU8(operands, 0))

	case bytecode.OpLoadGlobal:
		v.dispatchLoadGlobal(readU32(operands, 0))

	case bytecode.OpStoreGlobal:
		v.dispatchStoreGlobal(readU32(operands, 0))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		v.dispatchArith(op)

	case bytecode.OpAnd:
		b := v.pop()
		a := v.pop()
		v.push(value.Bool(a.Truthy() && b.Truthy()))

	case bytecode.OpOr:
		b := v.pop()
		a := v.pop()
		v.push(value.Bool(a.Truthy() || b.Truthy()))

	case bytecode.OpNot:
		a := v.pop()
		v.push(value.Bool(!a.Truthy()))

	case bytecode.OpEq, bytecode.OpNeq, bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte:
		v.dispatchCompare(op)

	case bytecode.OpJump:
		v.currentFrame().ip = int(readU32(operands, 0))

	case bytecode.OpJumpIfFalse:
		target := readU32(operands, 0)
		if !v.pop().Truthy() {
			v.currentFrame().ip = int(target)
		}

	case bytecode.OpJumpIfTrue:
		target := readU32(operands, 0)
		if v.pop().Truthy() {
			v.currentFrame().ip = int(target)
		}

	case bytecode.OpCall:
		fnIdx := readU32(operands, 0)
		argc := int(readU8(operands, 4))
		return v.doCall(fnIdx, argc)

	case bytecode.OpReturn:
		return v.doReturn(int(readU8(operands, 0)))

	case bytecode.OpCallNative:
		nameIdx := readU32(operands, 0)
		argc := int(readU8(operands, 4))
		v.dispatchCallNative(nameIdx, argc)

	case bytecode.OpCallFFI:
		libIdx := readU32(operands, 0)
		symIdx := readU32(operands, 4)
		argc := int(readU8(operands, 8))
		sig := readU8(operands, 9)
		v.dispatchCallFFI(libIdx, symIdx, argc, sig)

	case bytecode.OpNewObject:
		v.dispatchNewObject(readU32(operands, 0))

	case bytecode.OpGetField:
		v.dispatchGetField(readU32(operands, 0))

	case bytecode.OpSetField:
		v.dispatchSetField(readU32(operands, 0))

	case bytecode.OpIsInstance:
		v.dispatchIsInstance(readU32(operands, 0))

	case bytecode.OpNewArray:
		v.push(value.Object(v.Heap.AllocateArray()))

	case bytecode.OpArrayGet:
		v.dispatchArrayGet()

	case bytecode.OpArraySet:
		v.dispatchArraySet()

	case bytecode.OpNewMap:
		v.push(value.Object(v.Heap.AllocateMap()))

	case bytecode.OpMapGet:
		v.dispatchMapGet()

	case bytecode.OpMapSet:
		v.dispatchMapSet()

	case bytecode.OpStringConcat:
		v.dispatchStringConcat()

	case bytecode.OpStringLength:
		v.dispatchStringLength()

	case bytecode.OpStringSubstr:
		v.dispatchStringSubstr(readU32(operands, 0), readU32(operands, 4))

	case bytecode.OpStringEq:
		v.dispatchStringEq()

	case bytecode.OpStringGetChar:
		v.dispatchStringGetChar()

	default:
		v.diag.errorf("unimplemented opcode: %s", op)
	}

	return true
}

// constAt resolves a constant-pool index, falling back to Nil with a
// diagnostic on an out-of-range index (no opcode in the encoding can
// produce this from a well-formed Loader, but the loop stays total).
func (v *VM) constAt(idx uint32) value.Value {
	if int(idx) >= len(v.Module.Constants) {
		v.diag.errorf("constant index %d out of range", idx)
		return value.Nil()
	}
	return v.Module.Constants[idx]
}

// constString resolves idx to the string it holds, if it is a String
// constant (used by *_GLOBAL, NEW_OBJECT, GET_FIELD/SET_FIELD, IS_INSTANCE,
// CALL_NATIVE, CALL_FFI — every opcode whose operand names something by
// string rather than by value).
func (v *VM) constString(idx uint32) (string, bool) {
	c := v.constAt(idx)
	if !c.IsObject() {
		return "", false
	}
	obj, ok := v.Heap.Get(c.Ref())
	if !ok {
		return "", false
	}
	return asString(obj)
}
