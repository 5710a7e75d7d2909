package vm

import "github.com/droplet-lang/lang/pkg/value"

// dispatchCallNative implements CALL_NATIVE name_idx, argc (spec.md §4.6).
// An unregistered name pops argc, pushes Nil, and emits a diagnostic
// grounded on original_source/src/vm/VM.cpp's "CALL_NATIVE: not found
// <name>" wording.
func (v *VM) dispatchCallNative(nameIdx uint32, argc int) {
	name, ok := v.constString(nameIdx)
	if !ok {
		v.diag.errorf("CALL_NATIVE: bad nameIdx")
		for i := 0; i < argc; i++ {
			v.pop()
		}
		v.push(value.Nil())
		return
	}

	fn, ok := v.natives[name]
	if !ok {
		v.diag.errorf("CALL_NATIVE: not found %s", name)
		for i := 0; i < argc; i++ {
			v.pop()
		}
		v.push(value.Nil())
		return
	}

	v.push(fn(v, argc))
}
