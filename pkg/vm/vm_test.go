package vm

import (
	"math"
	"testing"

	"github.com/droplet-lang/lang/internal/trace"
	"github.com/droplet-lang/lang/pkg/bcasm"
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/value"
)

func run(t *testing.T, build func(b *bcasm.Builder)) (value.Value, *VM) {
	t.Helper()
	b := bcasm.New()
	build(b)
	h := heap.New()
	mod := b.Build(h)
	v := New(mod, h)
	return v.Run("main"), v
}

func TestArithmeticScenario(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		two := b.AddConstant(value.Int(2))
		three := b.AddConstant(value.Int(3))
		fb.EmitU32(bytecode.OpPush, two)
		fb.EmitU32(bytecode.OpPush, three)
		fb.Emit(bytecode.OpAdd)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 5 {
		t.Fatalf("result = %v, want Int(5)", result)
	}
}

func TestBranchScenario(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		trueIdx := b.AddConstant(value.Bool(true))
		hundred := b.AddConstant(value.Int(100))
		twoHundred := b.AddConstant(value.Int(200))

		fb.EmitU32(bytecode.OpPush, trueIdx)
		jumpPatch := fb.EmitJumpPlaceholder(bytecode.OpJumpIfFalse)
		fb.EmitU32(bytecode.OpPush, hundred)
		fb.EmitU8(bytecode.OpReturn, 1)
		elseTarget := fb.Offset()
		fb.EmitU32(bytecode.OpPush, twoHundred)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.PatchJumpTarget(jumpPatch, elseTarget)
		fb.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 100 {
		t.Fatalf("result = %v, want Int(100)", result)
	}
}

func TestCallWithLocalsScenario(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		addFB := b.NewFunction("add", 2, 2)
		addFB.EmitU8(bytecode.OpLoadLocal, 0)
		addFB.EmitU8(bytecode.OpLoadLocal, 1)
		addFB.Emit(bytecode.OpAdd)
		addFB.EmitU8(bytecode.OpReturn, 1)
		addIdx := addFB.Finish()

		mainFB := b.NewFunction("main", 0, 0)
		five := b.AddConstant(value.Int(5))
		three := b.AddConstant(value.Int(3))
		mainFB.EmitU32(bytecode.OpPush, five)
		mainFB.EmitU32(bytecode.OpPush, three)
		mainFB.EmitU32U8(bytecode.OpCall, addIdx, 2)
		mainFB.EmitU8(bytecode.OpReturn, 1)
		mainFB.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 8 {
		t.Fatalf("result = %v, want Int(8)", result)
	}
}

func TestArrayRoundTripScenario(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 1)
		zero := b.AddConstant(value.Int(0))
		hundred := b.AddConstant(value.Int(100))

		fb.Emit(bytecode.OpNewArray)
		fb.EmitU8(bytecode.OpStoreLocal, 0)
		fb.EmitU8(bytecode.OpLoadLocal, 0)
		fb.EmitU32(bytecode.OpPush, zero)
		fb.EmitU32(bytecode.OpPush, hundred)
		fb.Emit(bytecode.OpArraySet)
		fb.EmitU8(bytecode.OpLoadLocal, 0)
		fb.EmitU32(bytecode.OpPush, zero)
		fb.Emit(bytecode.OpArrayGet)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 100 {
		t.Fatalf("result = %v, want Int(100)", result)
	}
}

func TestObjectFieldScenario(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 1)
		className := b.AddStringConstant("T")
		fieldName := b.AddStringConstant("value")
		fortyTwo := b.AddConstant(value.Int(42))

		fb.EmitU32(bytecode.OpNewObject, className)
		fb.EmitU8(bytecode.OpStoreLocal, 0)
		fb.EmitU8(bytecode.OpLoadLocal, 0)
		fb.EmitU32(bytecode.OpPush, fortyTwo)
		fb.EmitU32(bytecode.OpSetField, fieldName)
		fb.EmitU8(bytecode.OpLoadLocal, 0)
		fb.EmitU32(bytecode.OpGetField, fieldName)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 42 {
		t.Fatalf("result = %v, want Int(42)", result)
	}
}

func TestStringConcatScenario(t *testing.T) {
	result, v := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		hello := b.AddStringConstant("Hello")
		world := b.AddStringConstant("World")
		fb.EmitU32(bytecode.OpPush, hello)
		fb.EmitU32(bytecode.OpPush, world)
		fb.Emit(bytecode.OpStringConcat)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if !result.IsObject() {
		t.Fatalf("result = %v, want an Object (String)", result)
	}
	if got := v.DisplayOf(result); got != "HelloWorld" {
		t.Errorf("DisplayOf(result) = %q, want %q", got, "HelloWorld")
	}
}

func TestCollectionPreservesReachable(t *testing.T) {
	b := bcasm.New()
	nameIdx := b.AddStringConstant("arr")
	fb := b.NewFunction("main", 0, 0)
	fb.Emit(bytecode.OpNewArray)
	fb.EmitU32(bytecode.OpStoreGlobal, nameIdx)
	fb.EmitU8(bytecode.OpReturn, 0)
	fb.Finish()

	h := heap.New()
	mod := b.Build(h)
	v := New(mod, h)
	v.Run("main")

	arrVal := v.globals["arr"]
	if !arrVal.IsObject() {
		t.Fatalf("expected global %q to hold the array", "arr")
	}
	arr, ok := v.arrayOf(arrVal)
	if !ok {
		t.Fatalf("expected an Array object")
	}
	for i := 0; i < 10; i++ {
		ref := h.AllocateString("kept")
		arr.Elements = append(arr.Elements, value.Object(ref))
	}
	for i := 0; i < 10; i++ {
		h.AllocateString("garbage")
	}
	before := h.Count()
	h.Collect(v.walkRoots)
	after := h.Count()
	if after >= before {
		t.Fatalf("expected a collection to shrink the heap: before=%d after=%d", before, after)
	}
	if after < 12 { // 10 kept strings + the array + the "arr" name constant
		t.Errorf("collected too aggressively: after=%d, want >= 12", after)
	}
}

func TestTraceRecordsExecutedInstructions(t *testing.T) {
	b := bcasm.New()
	fb := b.NewFunction("main", 0, 0)
	two := b.AddConstant(value.Int(2))
	three := b.AddConstant(value.Int(3))
	fb.EmitU32(bytecode.OpPush, two)
	fb.EmitU32(bytecode.OpPush, three)
	fb.Emit(bytecode.OpAdd)
	fb.EmitU8(bytecode.OpReturn, 1)
	fb.Finish()

	h := heap.New()
	mod := b.Build(h)
	buf := trace.NewBuffer(16)
	v := New(mod, h, WithTrace(buf))
	v.Run("main")

	events := buf.Events()
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	if events[0].Opcode != byte(bytecode.OpPush) || events[0].FuncName != "main" {
		t.Errorf("events[0] = %+v, want first PUSH in main", events[0])
	}
	if events[2].Opcode != byte(bytecode.OpAdd) || events[2].StackDepth != 2 {
		t.Errorf("events[2] = %+v, want ADD at stack depth 2", events[2])
	}
}

func TestLawNotNotIsBoolOfTruthy(t *testing.T) {
	for _, val := range []value.Value{value.Int(0), value.Int(5), value.Bool(false), value.Nil()} {
		b := bcasm.New()
		fb := b.NewFunction("main", 0, 0)
		idx := b.AddConstant(val)
		fb.EmitU32(bytecode.OpPush, idx)
		fb.Emit(bytecode.OpNot)
		fb.Emit(bytecode.OpNot)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
		h := heap.New()
		mod := b.Build(h)
		vm := New(mod, h)
		got := vm.Run("main")
		if got.Kind() != value.KindBool || got.Bool() != val.Truthy() {
			t.Errorf("NOT NOT %v = %v, want Bool(%v)", val, got, val.Truthy())
		}
	}
}

func TestDupPopLeavesStackUnchanged(t *testing.T) {
	b := bcasm.New()
	fb := b.NewFunction("main", 0, 0)
	idx := b.AddConstant(value.Int(7))
	fb.EmitU32(bytecode.OpPush, idx)
	fb.Emit(bytecode.OpDup)
	fb.Emit(bytecode.OpPop)
	fb.EmitU8(bytecode.OpReturn, 1)
	fb.Finish()
	h := heap.New()
	mod := b.Build(h)
	v := New(mod, h)
	got := v.Run("main")
	if got.Kind() != value.KindInt || got.Int() != 7 {
		t.Errorf("DUP POP result = %v, want Int(7)", got)
	}
}

func TestDivByZeroPromotesToDoubleInf(t *testing.T) {
	b := bcasm.New()
	fb := b.NewFunction("main", 0, 0)
	ten := b.AddConstant(value.Int(10))
	zero := b.AddConstant(value.Int(0))
	fb.EmitU32(bytecode.OpPush, ten)
	fb.EmitU32(bytecode.OpPush, zero)
	fb.Emit(bytecode.OpDiv)
	fb.EmitU8(bytecode.OpReturn, 1)
	fb.Finish()
	h := heap.New()
	mod := b.Build(h)
	v := New(mod, h)
	got := v.Run("main")
	if got.Kind() != value.KindDouble {
		t.Fatalf("got.Kind() = %v, want Double", got.Kind())
	}
	if !math.IsInf(got.Double(), 1) {
		t.Errorf("got.Double() = %v, want +Inf", got.Double())
	}
}
