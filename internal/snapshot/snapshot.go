// Package snapshot dumps a heap's live object set to a portable,
// inspectable form for debugging — a CBOR-encoded document naming every
// live object and its variant-specific payload. It plays the same role
// the teacher's vm/image_encoding.go + vm/image_writer.go pair plays for
// persisting a Smalltalk image, restyled for Droplet's tagged heap-object
// variants (SPEC_FULL.md §4, "heap snapshot dump (debug/inspection)").
// This is strictly a debug aid: nothing in pkg/vm reads a snapshot back in.
package snapshot

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
)

// Object is the CBOR-facing form of one heap object: its reference,
// variant name, and a variant-specific rendering.
type Object struct {
	Ref     uint32 `cbor:"ref"`
	Variant string `cbor:"variant"`
	Display string `cbor:"display"`

	// Populated only for the variants that carry structured children, so a
	// reader can reconstruct the object graph without re-running the VM.
	Elements []uint32          `cbor:"elements,omitempty"`
	Entries  map[string]uint32 `cbor:"entries,omitempty"`
	Fields   map[string]uint32 `cbor:"fields,omitempty"`
}

// Document is the top-level snapshot: every live object (each carrying its
// own reference, in no particular order), plus the live count at the time
// of the dump.
type Document struct {
	LiveCount int      `cbor:"live_count"`
	Objects   []Object `cbor:"objects"`
}

// refOf extracts the ObjectRef carried by an Object-kind Value, or 0 (the
// heap's reserved "no object" sentinel) for anything else — used to render
// an array/map/instance's children as plain reference numbers rather than
// recursing into full Objects, which would need the snapshot to chase
// cycles itself.
func refOf(v value.Value) uint32 {
	if !v.IsObject() {
		return 0
	}
	return uint32(v.Ref())
}

// Dump walks every live object in h (via VisitLive) and renders it to a
// Document, then CBOR-encodes it.
func Dump(h *heap.Heap) ([]byte, error) {
	doc := Document{}
	h.VisitLive(func(ref value.ObjectRef, obj heapobj.Object) {
		o := Object{Ref: uint32(ref), Display: obj.Display()}
		switch v := obj.(type) {
		case *heapobj.String:
			o.Variant = "String"
		case *heapobj.Array:
			o.Variant = "Array"
			for _, el := range v.Elements {
				o.Elements = append(o.Elements, refOf(el))
			}
		case *heapobj.Map:
			o.Variant = "Map"
			o.Entries = make(map[string]uint32, len(v.Entries))
			for k, val := range v.Entries {
				o.Entries[k] = refOf(val)
			}
		case *heapobj.Instance:
			o.Variant = "Instance"
			o.Fields = make(map[string]uint32, len(v.Fields))
			for k, val := range v.Fields {
				o.Fields[k] = refOf(val)
			}
		case *heapobj.FunctionRef:
			o.Variant = "FunctionRef"
		case *heapobj.BoundMethod:
			o.Variant = "BoundMethod"
		default:
			o.Variant = "Unknown"
		}
		doc.Objects = append(doc.Objects, o)
	})
	doc.LiveCount = len(doc.Objects)
	return cbor.Marshal(doc)
}

// Decode parses a snapshot produced by Dump, for tests and tooling that
// want to inspect a dump without a full CBOR-aware viewer.
func Decode(data []byte) (Document, error) {
	var doc Document
	err := cbor.Unmarshal(data, &doc)
	return doc, err
}
