package bcasm

import (
	"testing"

	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/value"
)

func TestBuildResolvesStringConstants(t *testing.T) {
	b := New()
	idx := b.AddStringConstant("hello")

	h := heap.New()
	mod := b.Build(h)

	if !mod.Constants[idx].IsObject() {
		t.Fatalf("expected string constant to resolve to an Object value")
	}
	obj, ok := h.Get(mod.Constants[idx].Ref())
	if !ok {
		t.Fatalf("resolved reference is not a live heap object")
	}
	if obj.Display() != "hello" {
		t.Errorf("Display() = %q, want %q", obj.Display(), "hello")
	}
}

func TestFunctionBuilderEmitsExpectedBytes(t *testing.T) {
	b := New()
	fb := b.NewFunction("add", 2, 2)
	fb.EmitU8(bytecode.OpLoadLocal, 0)
	fb.EmitU8(bytecode.OpLoadLocal, 1)
	fb.Emit(bytecode.OpAdd)
	fb.EmitU8(bytecode.OpReturn, 1)
	idx := fb.Finish()

	mod := b.Module()
	fn, ok := mod.Function(idx)
	if !ok {
		t.Fatalf("function not found at index %d", idx)
	}
	want := []byte{
		byte(bytecode.OpLoadLocal), 0,
		byte(bytecode.OpLoadLocal), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn), 1,
	}
	if string(fn.Code) != string(want) {
		t.Errorf("code = %v, want %v", fn.Code, want)
	}
	if fn.ArgCount != 2 || fn.LocalCount != 2 {
		t.Errorf("ArgCount/LocalCount = %d/%d, want 2/2", fn.ArgCount, fn.LocalCount)
	}
}

func TestPatchJumpTarget(t *testing.T) {
	b := New()
	fb := b.NewFunction("main", 0, 0)

	fb.Emit(bytecode.OpNewArray)
	placeholder := fb.EmitJumpPlaceholder(bytecode.OpJump)
	target := fb.Offset()
	fb.PatchJumpTarget(placeholder, target)

	got := fb.code[placeholder : placeholder+4]
	want := []byte{byte(target), byte(target >> 8), byte(target >> 16), byte(target >> 24)}
	if string(got) != string(want) {
		t.Errorf("patched jump target = %v, want %v", got, want)
	}
}

func TestAddConstantDistinctIndices(t *testing.T) {
	b := New()
	a := b.AddConstant(value.Int(1))
	c := b.AddConstant(value.Int(2))
	if a == c {
		t.Errorf("expected distinct indices, got %d == %d", a, c)
	}
}
