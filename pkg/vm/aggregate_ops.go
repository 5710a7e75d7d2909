package vm

import (
	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
)

// dispatchArrayGet implements ARRAY_GET: pops index then array. Out of
// bounds returns Nil rather than failing (spec.md §4.2 edge policy).
func (v *VM) dispatchArrayGet() {
	idx := v.pop()
	arr := v.pop()
	a, ok := v.arrayOf(arr)
	if !ok {
		v.diag.errorf("ARRAY_GET: operand is not an Array")
		v.push(value.Nil())
		return
	}
	i := int(idx.AsFloat())
	if i < 0 || i >= len(a.Elements) {
		v.push(value.Nil())
		return
	}
	v.push(a.Elements[i])
}

// dispatchArraySet implements ARRAY_SET: pops value, index, array. Writing
// past the current length auto-extends the array with Nils up to index.
func (v *VM) dispatchArraySet() {
	val := v.pop()
	idx := v.pop()
	arr := v.pop()
	a, ok := v.arrayOf(arr)
	if !ok {
		v.diag.errorf("ARRAY_SET: operand is not an Array")
		return
	}
	i := int(idx.AsFloat())
	if i < 0 {
		v.diag.errorf("ARRAY_SET: negative index %d", i)
		return
	}
	for i >= len(a.Elements) {
		a.Elements = append(a.Elements, value.Nil())
	}
	a.Elements[i] = val
}

func (v *VM) arrayOf(val value.Value) (*heapobj.Array, bool) {
	if !val.IsObject() {
		return nil, false
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return nil, false
	}
	a, ok := obj.(*heapobj.Array)
	return a, ok
}

// dispatchMapGet implements MAP_GET: pops key then map. Keys are
// stringified via the §3 display rules before lookup.
func (v *VM) dispatchMapGet() {
	key := v.pop()
	m := v.pop()
	mp, ok := v.mapOf(m)
	if !ok {
		v.diag.errorf("MAP_GET: operand is not a Map")
		v.push(value.Nil())
		return
	}
	v.push(mp.Entries[v.displayOf(key)])
}

// dispatchMapSet implements MAP_SET: pops value, key, map.
func (v *VM) dispatchMapSet() {
	val := v.pop()
	key := v.pop()
	m := v.pop()
	mp, ok := v.mapOf(m)
	if !ok {
		v.diag.errorf("MAP_SET: operand is not a Map")
		return
	}
	mp.Entries[v.displayOf(key)] = val
}

func (v *VM) mapOf(val value.Value) (*heapobj.Map, bool) {
	if !val.IsObject() {
		return nil, false
	}
	obj, ok := v.Heap.Get(val.Ref())
	if !ok {
		return nil, false
	}
	m, ok := obj.(*heapobj.Map)
	return m, ok
}
