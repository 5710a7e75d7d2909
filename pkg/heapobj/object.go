// Package heapobj defines the heap-allocated object variants that a Droplet
// Value's Object kind can reference: String, Array, Map, Instance,
// FunctionRef, and BoundMethod. Each variant implements Object, giving the
// collector a uniform way to display it and to walk the Values it directly
// owns, grounded on original_source/src/vm/Object.h's virtual
// get_representor/markChildren pair.
package heapobj

import (
	"fmt"
	"strings"

	"github.com/droplet-lang/lang/pkg/value"
)

// Object is implemented by every heap-allocated variant. mark_children in
// the spec is MarkChildren here: it hands the collector every Value this
// object directly owns so the mark phase can recurse into them.
type Object interface {
	// Display returns a human-readable form of the object.
	Display() string
	// MarkChildren invokes mark for every Value this object owns directly.
	MarkChildren(mark func(value.Value))
}

// String is an immutable byte sequence.
type String struct {
	Value string
}

func (s *String) Display() string                    { return s.Value }
func (s *String) MarkChildren(mark func(value.Value)) {}

// Array is an ordered, mutable sequence of Values.
type Array struct {
	Elements []value.Value
}

func (a *Array) Display() string { return "<array>" }
func (a *Array) MarkChildren(mark func(value.Value)) {
	for _, v := range a.Elements {
		mark(v)
	}
}

// Map is a string-keyed mapping to Values. Insertion order is not
// significant per the spec, but Go's own map randomizes iteration order
// anyway, so no ordered container is needed.
type Map struct {
	Entries map[string]value.Value
}

// NewMap allocates an empty Entries map so callers never see a nil map.
func NewMap() *Map { return &Map{Entries: make(map[string]value.Value)} }

func (m *Map) Display() string { return "<map>" }
func (m *Map) MarkChildren(mark func(value.Value)) {
	for _, v := range m.Entries {
		mark(v)
	}
}

// Instance is a named object with string-keyed fields.
type Instance struct {
	ClassName string
	Fields    map[string]value.Value
}

// NewInstance allocates an Instance with the given class name and an empty
// field map.
func NewInstance(className string) *Instance {
	return &Instance{ClassName: className, Fields: make(map[string]value.Value)}
}

func (i *Instance) Display() string { return fmt.Sprintf("<object:%s>", i.ClassName) }
func (i *Instance) MarkChildren(mark func(value.Value)) {
	for _, v := range i.Fields {
		mark(v)
	}
}

// FunctionRef references a function in the owning Module's function table
// by index. It owns no Values.
type FunctionRef struct {
	FnIndex uint32
}

func (f *FunctionRef) Display() string                    { return fmt.Sprintf("<function@%d>", f.FnIndex) }
func (f *FunctionRef) MarkChildren(mark func(value.Value)) {}

// BoundMethod pairs a receiver Value with a function index. It owns the
// receiver, so the collector must keep it (and anything it reaches) alive.
type BoundMethod struct {
	Receiver value.Value
	FnIndex  uint32
}

func (b *BoundMethod) Display() string { return fmt.Sprintf("<bound-method@%d>", b.FnIndex) }
func (b *BoundMethod) MarkChildren(mark func(value.Value)) {
	mark(b.Receiver)
}

// TypeName returns a short identifier for the concrete variant. No caller
// in the repository uses it; IS_INSTANCE checks the variant with a type
// assertion of its own.
func TypeName(o Object) string {
	switch o.(type) {
	case *String:
		return "String"
	case *Array:
		return "Array"
	case *Map:
		return "Map"
	case *Instance:
		return "Instance"
	case *FunctionRef:
		return "FunctionRef"
	case *BoundMethod:
		return "BoundMethod"
	default:
		return "Unknown"
	}
}

// JoinKeys is a small display helper that lists a Map's keys, comma
// separated and in no particular order, without its values. No caller in
// the repository uses it.
func JoinKeys(m *Map) string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}
