package vm

import (
	"path/filepath"
	"strings"

	"github.com/ebitengine/purego"

	"github.com/droplet-lang/lang/pkg/value"
)

// ffiSignature names one of the fixed C-level call shapes spec.md §4.6
// requires at minimum.
type ffiSignature uint8

const (
	sigInt32Int32Int32 ffiSignature = 0 // int32(int32, int32)
	sigInt32Int32      ffiSignature = 1 // int32(int32)
	sigDoubleDoubleDouble ffiSignature = 2 // double(double, double)
)

// dispatchCallFFI implements CALL_FFI lib_idx, sym_idx, argc, sig
// (spec.md §4.6). Library handles are opened on first use through purego
// (a cgo-free dlopen/dlsym/typed-call layer — Design Notes "FFI shape":
// "back it with a generic variadic call mechanism") and kept in a per-VM
// cache (Design Notes "Global state": instance-level, not process-level),
// deduplicated across concurrent callers of the same path with
// singleflight so two goroutines racing to open the same library don't
// both pay the dlopen cost.
func (v *VM) dispatchCallFFI(libIdx, symIdx uint32, argc int, sig uint8) {
	fail := func(reason string) {
		v.diag.errorf("CALL_FFI: %s", reason)
		for i := 0; i < argc; i++ {
			v.pop()
		}
		v.push(value.Nil())
	}

	libPath, ok := v.constString(libIdx)
	if !ok {
		fail("bad idx")
		return
	}
	symName, ok := v.constString(symIdx)
	if !ok {
		fail("name types")
		return
	}

	handle, err := v.openLibrary(libPath)
	if err != nil {
		fail("symbol missing")
		return
	}

	switch ffiSignature(sig) {
	case sigInt32Int32Int32:
		if argc != 2 {
			fail("unsupported signature (argc mismatch)")
			return
		}
		var fn func(int32, int32) int32
		if !v.registerLibFuncSafely(&fn, handle, symName) {
			fail("symbol missing")
			return
		}
		b := int32(v.pop().AsFloat())
		a := int32(v.pop().AsFloat())
		v.push(value.Int(int64(v.callFFISafely(func() int32 { return fn(a, b) }))))

	case sigInt32Int32:
		if argc != 1 {
			fail("unsupported signature (argc mismatch)")
			return
		}
		var fn func(int32) int32
		if !v.registerLibFuncSafely(&fn, handle, symName) {
			fail("symbol missing")
			return
		}
		a := int32(v.pop().AsFloat())
		v.push(value.Int(int64(v.callFFISafely(func() int32 { return fn(a) }))))

	case sigDoubleDoubleDouble:
		if argc != 2 {
			fail("unsupported signature (argc mismatch)")
			return
		}
		var fn func(float64, float64) float64
		if !v.registerLibFuncSafely(&fn, handle, symName) {
			fail("symbol missing")
			return
		}
		b := v.pop().AsFloat()
		a := v.pop().AsFloat()
		v.push(value.Double(v.callFFISafelyF(func() float64 { return fn(a, b) })))

	default:
		fail("unsupported signature")
	}
}

// registerLibFuncSafely binds fnPtr to symName on handle through
// purego.RegisterLibFunc, which panics rather than returning an error when
// the symbol cannot be resolved via dlsym. That panic is recovered here so
// a valid library with a missing or misspelled symbol degrades like any
// other CALL_FFI failure (fallback Nil, diagnostic, VM keeps running)
// instead of crashing the interpreter loop.
func (v *VM) registerLibFuncSafely(fnPtr any, handle uintptr, symName string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.diag.errorf("CALL_FFI: recovered from panic resolving symbol %q: %v", symName, r)
			ok = false
		}
	}()
	purego.RegisterLibFunc(fnPtr, handle, symName)
	return true
}

// openLibrary opens path via dlopen, caching the handle for the life of
// this VM. Concurrent opens of the same path (a VM method called from
// several goroutines, which spec.md §5 otherwise forbids mid-opcode but
// a host embedding several VMs may still race on process-wide loader
// state) are deduplicated with singleflight.
func (v *VM) openLibrary(path string) (uintptr, error) {
	if h, ok := v.ffiLibs[path]; ok {
		return h, nil
	}
	result, err, _ := v.ffiGroup.Do(path, func() (any, error) {
		return v.dlopenSearching(path)
	})
	if err != nil {
		return 0, err
	}
	handle := result.(uintptr)
	v.ffiLibs[path] = handle
	return handle, nil
}

// dlopenSearching opens path directly first. If that fails and path is a
// bare filename (no directory component), it retries against each
// directory in ffiSearchPaths in order (internal/config's
// droplet.toml "ffi.library-paths"), returning the first successful open.
// A path that already names a directory is never redirected through the
// search list — only bare names benefit from it.
func (v *VM) dlopenSearching(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err == nil {
		return handle, nil
	}
	if filepath.IsAbs(path) || strings.ContainsRune(path, filepath.Separator) {
		return 0, err
	}
	for _, dir := range v.ffiSearchPaths {
		if h, searchErr := purego.Dlopen(filepath.Join(dir, path), purego.RTLD_NOW|purego.RTLD_GLOBAL); searchErr == nil {
			return h, nil
		}
	}
	return 0, err
}

// callFFISafely recovers from a panic raised while crossing into foreign
// code (e.g. a symbol that resolved to the wrong calling convention),
// treating it exactly like any other run-time anomaly: a zero fallback and
// a diagnostic, never a crashed VM (SPEC_FULL.md §3 "Error handling").
func (v *VM) callFFISafely(call func() int32) int32 {
	var result int32
	func() {
		defer func() {
			if r := recover(); r != nil {
				v.diag.errorf("CALL_FFI: recovered from panic crossing into foreign code: %v", r)
				result = 0
			}
		}()
		result = call()
	}()
	return result
}

func (v *VM) callFFISafelyF(call func() float64) float64 {
	var result float64
	func() {
		defer func() {
			if r := recover(); r != nil {
				v.diag.errorf("CALL_FFI: recovered from panic crossing into foreign code: %v", r)
				result = 0
			}
		}()
		result = call()
	}()
	return result
}
