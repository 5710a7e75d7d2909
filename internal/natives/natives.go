// Package natives supplies the baseline set of native functions
// original_source/src/native/Native.h registers before running any
// module: print, println, str, len, and the exit(n) native spec.md §6.3
// specifies directly ("The exit(n) native terminates the process with n").
package natives

import (
	"fmt"
	"io"
	"os"

	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
	"github.com/droplet-lang/lang/pkg/vm"
)

// Register installs print, println, str, len, and exit on v, writing
// print's and println's output to w (os.Stdout if nil).
func Register(v *vm.VM, w io.Writer) {
	RegisterFiltered(v, w, func(string) bool { return true })
}

// RegisterFiltered installs only the baseline natives for which enabled
// returns true, so a config.Config's natives.disable list can turn
// individual ones off without the caller hand-wiring each RegisterNative
// call itself.
func RegisterFiltered(v *vm.VM, w io.Writer, enabled func(name string) bool) {
	if w == nil {
		w = os.Stdout
	}
	if enabled("print") {
		v.RegisterNative("print", printFn(w, false))
	}
	if enabled("println") {
		v.RegisterNative("println", printFn(w, true))
	}
	if enabled("str") {
		v.RegisterNative("str", strFn)
	}
	if enabled("len") {
		v.RegisterNative("len", lenFn)
	}
	if enabled("exit") {
		v.RegisterNative("exit", exitFn)
	}
}

// printFn implements native_print/native_println: displays argc values,
// space-separated, in the order they were pushed (argument 0 first).
// newline controls whether a trailing "\n" is written.
func printFn(w io.Writer, newline bool) vm.NativeFunc {
	return func(v *vm.VM, argc int) value.Value {
		args := make([]string, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = v.DisplayOf(v.Pop())
		}
		for i, s := range args {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, s)
		}
		if newline {
			fmt.Fprintln(w)
		}
		return value.Nil()
	}
}

// strFn implements native_str: stringifies its single argument, or pushes
// Nil if not called with exactly one argument.
func strFn(v *vm.VM, argc int) value.Value {
	if argc != 1 {
		for i := 0; i < argc; i++ {
			v.Pop()
		}
		return value.Nil()
	}
	s := v.DisplayOf(v.Pop())
	return value.Object(v.Heap.AllocateString(s))
}

// lenFn implements native_len: length-by-variant for String/Array/Map, 0
// for anything else (including a wrong argc).
func lenFn(v *vm.VM, argc int) value.Value {
	if argc != 1 {
		for i := 0; i < argc; i++ {
			v.Pop()
		}
		return value.Int(0)
	}
	val := v.Pop()
	if !val.IsObject() {
		return value.Int(0)
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return value.Int(0)
	}
	switch o := obj.(type) {
	case *heapobj.String:
		return value.Int(int64(len(o.Value)))
	case *heapobj.Array:
		return value.Int(int64(len(o.Elements)))
	case *heapobj.Map:
		return value.Int(int64(len(o.Entries)))
	default:
		return value.Int(0)
	}
}

// exitFn implements native_exit: terminates the process immediately with
// the numeric-ified first argument as exit status, 0 if called with no
// arguments (spec.md §6.3: "The exit(n) native terminates the process with
// n"). It never returns to the caller.
func exitFn(v *vm.VM, argc int) value.Value {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = v.Pop()
	}
	code := 0
	if len(args) > 0 {
		code = int(args[0].AsFloat())
	}
	os.Exit(code)
	return value.Nil()
}
