package vm

import "github.com/droplet-lang/lang/pkg/value"

// dispatchLoadLocal implements LOAD_LOCAL slot (spec.md §4.1): reads
// stack[local_base+slot], or Nil if slot names a slot the frame hasn't
// grown into yet.
func (v *VM) dispatchLoadLocal(slot uint8) {
	idx := v.currentFrame().localBase + int(slot)
	if idx < 0 || idx >= len(v.stack) {
		v.push(value.Nil())
		return
	}
	v.push(v.stack[idx])
}

// dispatchStoreLocal implements STORE_LOCAL slot, auto-extending the stack
// with Nils when slot is above the current top (spec.md §4.1).
func (v *VM) dispatchStoreLocal(slot uint8) {
	val := v.pop()
	idx := v.currentFrame().localBase + int(slot)
	for idx >= len(v.stack) {
		v.push(value.Nil())
	}
	v.stack[idx] = val
}

// dispatchLoadGlobal implements LOAD_GLOBAL name_idx: reading an unset
// global yields Nil (spec.md §4.2).
func (v *VM) dispatchLoadGlobal(nameIdx uint32) {
	name, ok := v.constString(nameIdx)
	if !ok {
		v.diag.errorf("LOAD_GLOBAL: name index %d is not a String constant", nameIdx)
		v.push(value.Nil())
		return
	}
	v.push(v.globals[name])
}

// dispatchStoreGlobal implements STORE_GLOBAL name_idx.
func (v *VM) dispatchStoreGlobal(nameIdx uint32) {
	val := v.pop()
	name, ok := v.constString(nameIdx)
	if !ok {
		v.diag.errorf("STORE_GLOBAL: name index %d is not a String constant", nameIdx)
		return
	}
	v.globals[name] = val
}
