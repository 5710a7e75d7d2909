package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/droplet-lang/lang/pkg/bcasm"
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/value"
)

// TestCallFFIBadLibIdx exercises the "bad idx" failure path: a lib_idx that
// does not name a String constant must pop argc, push Nil, and leave the VM
// running rather than halting the loop.
func TestCallFFIBadLibIdx(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		junk := b.AddConstant(value.Int(42)) // not a String constant
		sym := b.AddStringConstant("add")
		fb.EmitCallFFI(junk, sym, 0, 0)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if !result.IsNil() {
		t.Errorf("result = %v, want Nil on a bad lib_idx", result)
	}
}

// TestCallFFILibraryOpenFails exercises the failure path taken when the
// named library simply does not exist on disk — no compiled fixture needed,
// since dlopen failing is itself the behavior under test.
func TestCallFFILibraryOpenFails(t *testing.T) {
	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		lib := b.AddStringConstant("/nonexistent/libdroplet-test-fixture.so")
		sym := b.AddStringConstant("add")
		two := b.AddConstant(value.Int(2))
		three := b.AddConstant(value.Int(3))
		fb.EmitU32(bytecode.OpPush, two)
		fb.EmitU32(bytecode.OpPush, three)
		fb.EmitCallFFI(lib, sym, 2, 0)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if !result.IsNil() {
		t.Errorf("result = %v, want Nil when the library cannot be opened", result)
	}
}

// TestCallFFISymbolMissing runs CALL_FFI against a library that opens
// successfully but is asked for a symbol it does not export. purego's
// RegisterLibFunc panics in that situation rather than returning an error;
// this must surface as an ordinary CALL_FFI failure (fallback Nil,
// diagnostic, VM keeps running), not a crashed interpreter loop. Skipped
// like TestCallFFIAgainstMathlib when no compiled testdata/mathlib.so is
// present.
func TestCallFFISymbolMissing(t *testing.T) {
	libPath, err := filepath.Abs(filepath.Join("testdata", "mathlib.so"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(libPath); err != nil {
		t.Skipf("testdata/mathlib.so not present, skipping FFI integration test: %v", err)
	}

	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		lib := b.AddStringConstant(libPath)
		sym := b.AddStringConstant("this_symbol_does_not_exist")
		two := b.AddConstant(value.Int(2))
		three := b.AddConstant(value.Int(3))
		fb.EmitU32(bytecode.OpPush, two)
		fb.EmitU32(bytecode.OpPush, three)
		fb.EmitCallFFI(lib, sym, 2, 0)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if !result.IsNil() {
		t.Errorf("result = %v, want Nil when the symbol cannot be resolved", result)
	}
}

// TestCallFFIAgainstMathlib runs CALL_FFI against a real compiled library if
// one has been built from original_source/examples/ffi/mathlib.c into
// testdata/mathlib.so (see testdata/README). It is skipped otherwise, since
// this repository does not invoke a C compiler as part of its own build.
func TestCallFFIAgainstMathlib(t *testing.T) {
	libPath, err := filepath.Abs(filepath.Join("testdata", "mathlib.so"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(libPath); err != nil {
		t.Skipf("testdata/mathlib.so not present, skipping FFI integration test: %v", err)
	}

	result, _ := run(t, func(b *bcasm.Builder) {
		fb := b.NewFunction("main", 0, 0)
		lib := b.AddStringConstant(libPath)
		sym := b.AddStringConstant("add")
		two := b.AddConstant(value.Int(2))
		three := b.AddConstant(value.Int(3))
		fb.EmitU32(bytecode.OpPush, two)
		fb.EmitU32(bytecode.OpPush, three)
		fb.EmitCallFFI(lib, sym, 2, 0)
		fb.EmitU8(bytecode.OpReturn, 1)
		fb.Finish()
	})
	if result.Kind() != value.KindInt || result.Int() != 5 {
		t.Errorf("result = %v, want Int(5)", result)
	}
}

// TestCallFFIUsesSearchPaths proves WithFFISearchPaths actually reaches
// openLibrary: a bare filename (no directory component) that fails to open
// directly must be retried against each configured search directory.
// Skipped like the tests above when no compiled testdata/mathlib.so exists.
func TestCallFFIUsesSearchPaths(t *testing.T) {
	dir, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mathlib.so")); err != nil {
		t.Skipf("testdata/mathlib.so not present, skipping FFI search-path test: %v", err)
	}

	b := bcasm.New()
	fb := b.NewFunction("main", 0, 0)
	lib := b.AddStringConstant("mathlib.so")
	sym := b.AddStringConstant("add")
	two := b.AddConstant(value.Int(2))
	three := b.AddConstant(value.Int(3))
	fb.EmitU32(bytecode.OpPush, two)
	fb.EmitU32(bytecode.OpPush, three)
	fb.EmitCallFFI(lib, sym, 2, 0)
	fb.EmitU8(bytecode.OpReturn, 1)
	fb.Finish()

	h := heap.New()
	mod := b.Build(h)
	v := New(mod, h, WithFFISearchPaths([]string{dir}))
	result := v.Run("main")

	if result.Kind() != value.KindInt || result.Int() != 5 {
		t.Errorf("result = %v, want Int(5) via the configured search path", result)
	}
}
