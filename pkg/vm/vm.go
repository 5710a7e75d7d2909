// Package vm is the Droplet interpreter: a single shared operand stack, a
// frame stack implementing the CALL/RETURN protocol of spec.md §4.1, and a
// switch-dispatch fetch-decode-execute loop (spec.md §4.2) grounded on the
// teacher's pkg/bytecode VM (a flat `switch op` over a single growable
// stack) and on original_source/src/vm/VM.cpp's run().
package vm

import (
	"io"

	"golang.org/x/sync/singleflight"

	"github.com/droplet-lang/lang/internal/trace"
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/module"
	"github.com/droplet-lang/lang/pkg/value"
)

// NativeFunc is a host-provided callable registered under a name and
// invoked through CALL_NATIVE. By contract it pops exactly argc operand
// stack values itself; the VM then pushes its single return Value on its
// behalf, so the net stack effect matches spec.md §4.6's "pops argc,
// pushes one result" exactly.
type NativeFunc func(vm *VM, argc int) value.Value

// VM is one independent interpreter instance: its own stack, frames,
// globals, native registry, and FFI library cache (Design Notes "Global
// state": these are instance-level, not process-level).
type VM struct {
	Module  *module.Module
	Heap    *heap.Heap
	stack   []value.Value
	frames  []Frame
	globals map[string]value.Value
	natives map[string]NativeFunc

	diag *diagnostics

	ffiLibs        map[string]uintptr
	ffiGroup       singleflight.Group
	ffiSearchPaths []string

	trace *trace.Buffer
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithDiagnosticsWriter redirects run-time diagnostic lines away from the
// default os.Stderr.
func WithDiagnosticsWriter(w io.Writer) Option {
	return func(v *VM) { v.diag = newDiagnostics(w) }
}

// WithTrace attaches a bounded instruction trace: every executed
// instruction is recorded into buf for later post-mortem inspection
// (internal/trace). Omit this option to run with no trace overhead at all.
func WithTrace(buf *trace.Buffer) Option {
	return func(v *VM) { v.trace = buf }
}

// Trace returns the VM's trace buffer, or nil if WithTrace was never
// supplied.
func (v *VM) Trace() *trace.Buffer { return v.trace }

// WithFFISearchPaths configures the directories CALL_FFI searches when a
// lib_idx constant names a bare filename rather than an absolute or
// relative path (internal/config's droplet.toml "ffi.library-paths").
func WithFFISearchPaths(paths []string) Option {
	return func(v *VM) { v.ffiSearchPaths = paths }
}

// New creates a VM bound to mod and h. h is the same heap the caller used
// (directly, or through pkg/loader) to allocate mod's String constants, so
// PUSH_CONST of a string constant and the VM's own allocations share one
// reachability graph.
func New(mod *module.Module, h *heap.Heap, opts ...Option) *VM {
	v := &VM{
		Module:  mod,
		Heap:    h,
		globals: make(map[string]value.Value),
		natives: make(map[string]NativeFunc),
		ffiLibs: make(map[string]uintptr),
		diag:    newDiagnostics(nil),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RegisterNative installs fn under name so CALL_NATIVE can dispatch to it
// (spec.md §6.3 "register_native(name, fn)").
func (v *VM) RegisterNative(name string, fn NativeFunc) {
	v.natives[name] = fn
}

// Run locates entryName in the Module's function table, pushes a
// zero-argument frame for it, and executes until the frame stack empties
// (spec.md §6.3 "run(module, entry_name)"). The returned Value is the top
// of the operand stack as it stands (an Object stays an Object), or Nil if
// the stack is empty. cmd/droplet prints it; it does not use it as the
// process exit status.
func (v *VM) Run(entryName string) value.Value {
	idx, ok := v.Module.Lookup(entryName)
	if !ok {
		v.diag.errorf("entry function %q not found", entryName)
		return value.Nil()
	}
	fn, ok := v.Module.Function(idx)
	if !ok {
		v.diag.errorf("entry function %q resolved to an invalid index", entryName)
		return value.Nil()
	}

	v.frames = append(v.frames, Frame{fn: fn, ip: 0, localBase: len(v.stack)})
	v.loop()

	if len(v.stack) == 0 {
		return value.Nil()
	}
	return v.stack[len(v.stack)-1]
}

// loop is the fetch-decode-execute cycle of spec.md §4.2: while the frame
// stack is non-empty, fetch the opcode at the topmost frame's ip, advance
// ip, dispatch. Before each instruction, a collection runs if the heap has
// grown past its threshold.
func (v *VM) loop() {
	for len(v.frames) > 0 {
		frame := &v.frames[len(v.frames)-1]

		if v.Heap.ShouldCollect() {
			v.Heap.Collect(v.walkRoots)
		}

		if frame.ip >= len(frame.fn.Code) {
			// End of code without an explicit RETURN: treat as RETURN 0.
			if !v.doReturn(0) {
				return
			}
			continue
		}

		op := bytecode.Opcode(frame.fn.Code[frame.ip])
		info, known := bytecode.Info(op)
		if !known {
			v.diag.errorf("unknown opcode 0x%02X at ip=%d, halting", byte(op), frame.ip)
			return
		}
		if v.trace != nil {
			v.trace.Record(trace.Event{
				FuncName:   frame.fn.Name,
				IP:         frame.ip,
				Opcode:     byte(op),
				StackDepth: len(v.stack),
			})
		}

		frame.ip++

		operands := frame.fn.Code[frame.ip : frame.ip+info.OperandLen()]
		frame.ip += info.OperandLen()

		if !v.dispatch(op, operands) {
			return
		}
	}
}

// Pop removes and returns the top of the operand stack. It exists
// alongside the unexported pop so that native functions registered from
// other packages (internal/natives) can honor CALL_NATIVE's "pops argc
// values itself" contract (spec.md §4.6) without pkg/vm exposing its
// whole internal stack slice.
func (v *VM) Pop() value.Value { return v.pop() }

// DisplayOf resolves a Value's display string, for native functions that
// need the §3 display rules (print, println, str).
func (v *VM) DisplayOf(val value.Value) string { return v.displayOf(val) }

// push appends v to the operand stack.
func (v *VM) push(val value.Value) { v.stack = append(v.stack, val) }

// pop removes and returns the top of the operand stack. An empty stack
// (which a well-formed program never produces, per the stack-balance
// invariant) yields Nil rather than panicking, keeping the VM total.
func (v *VM) pop() value.Value {
	if len(v.stack) == 0 {
		return value.Nil()
	}
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return top
}

// peek returns the k-th element from the top (0 = top) without removing it.
func (v *VM) peek(k int) value.Value {
	idx := len(v.stack) - 1 - k
	if idx < 0 || idx >= len(v.stack) {
		return value.Nil()
	}
	return v.stack[idx]
}

func (v *VM) currentFrame() *Frame { return &v.frames[len(v.frames)-1] }

// walkRoots implements heap.RootWalker: every operand-stack slot, every
// global, and every constant-pool entry is a root (spec.md §4.5 step 2).
func (v *VM) walkRoots(mark func(value.Value)) {
	for _, val := range v.stack {
		mark(val)
	}
	for _, val := range v.globals {
		mark(val)
	}
	for _, val := range v.Module.Constants {
		mark(val)
	}
}

// displayOf resolves a Value's display string through the heap for Object
// variants, using value.ImmediateDisplay otherwise (spec.md §3's display
// rules, used for map-key stringification and the EQ/NEQ textual fallback).
func (v *VM) displayOf(val value.Value) string {
	if !val.IsObject() {
		return val.ImmediateDisplay()
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return ""
	}
	return obj.Display()
}
