package vm

import (
	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
)

// dispatchNewObject implements NEW_OBJECT class_name_idx: allocates an
// Instance whose class name is the string constant at class_name_idx.
func (v *VM) dispatchNewObject(classNameIdx uint32) {
	name, ok := v.constString(classNameIdx)
	if !ok {
		v.diag.errorf("NEW_OBJECT: class name index %d is not a String constant", classNameIdx)
		v.push(value.Nil())
		return
	}
	v.push(value.Object(v.Heap.AllocateInstance(name)))
}

// dispatchGetField implements GET_FIELD name_idx: pops an object, pushes
// its field value (or Nil if the object isn't an Instance, or the field
// was never set).
func (v *VM) dispatchGetField(nameIdx uint32) {
	obj := v.pop()
	name, ok := v.constString(nameIdx)
	if !ok {
		v.diag.errorf("GET_FIELD: name index %d is not a String constant", nameIdx)
		v.push(value.Nil())
		return
	}
	inst, ok := v.instanceOf(obj)
	if !ok {
		v.diag.errorf("GET_FIELD %q: operand is not an Instance", name)
		v.push(value.Nil())
		return
	}
	v.push(inst.Fields[name])
}

// dispatchSetField implements SET_FIELD name_idx: pops value then object.
// It has no result to push, so the failure path discards the same two
// operands as the success path and pushes nothing either way.
func (v *VM) dispatchSetField(nameIdx uint32) {
	val := v.pop()
	obj := v.pop()
	name, ok := v.constString(nameIdx)
	if !ok {
		v.diag.errorf("SET_FIELD: name index %d is not a String constant", nameIdx)
		return
	}
	inst, ok := v.instanceOf(obj)
	if !ok {
		v.diag.errorf("SET_FIELD %q: operand is not an Instance", name)
		return
	}
	inst.Fields[name] = val
}

// dispatchIsInstance implements IS_INSTANCE type_name_idx: pops one Value,
// pushes true iff it is an Instance whose class name matches the constant.
func (v *VM) dispatchIsInstance(typeNameIdx uint32) {
	val := v.pop()
	name, ok := v.constString(typeNameIdx)
	if !ok {
		v.diag.errorf("IS_INSTANCE: type name index %d is not a String constant", typeNameIdx)
		v.push(value.Bool(false))
		return
	}
	inst, ok := v.instanceOf(val)
	v.push(value.Bool(ok && inst.ClassName == name))
}

func (v *VM) instanceOf(val value.Value) (*heapobj.Instance, bool) {
	if !val.IsObject() {
		return nil, false
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return nil, false
	}
	inst, ok := obj.(*heapobj.Instance)
	return inst, ok
}
