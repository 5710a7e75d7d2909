// Package heap owns the set of live Droplet heap objects and runs the
// mark-and-sweep collector described in spec.md §4.5. The allocator and
// collector are grounded on original_source/src/vm/GC.h's
// allocNewObject/markAll/sweep/collectIfNeeded shape, restyled as a Go
// object store indexed by stable identifiers (design note: "an owned
// heap-object store indexed by stable identifiers, with each Value's Object
// variant carrying an identifier"), with the periodic-sweep statistics
// reporting pattern borrowed from the teacher's vm/registry_gc.go.
package heap

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
)

// DefaultThresholdBytes is the default heap size (estimated) at which the
// next collection is triggered. spec.md §4.5: "Default threshold: 1 MiB
// worth of objects".
const DefaultThresholdBytes = 1 << 20

// GrowthFactor is applied to the live-set size after a sweep to compute the
// next threshold, so the collector doesn't thrash. spec.md §4.5's
// recommendation: "new threshold = 2x live-set after sweep".
const GrowthFactor = 2

// RootWalker enumerates every root Value in the embedding VM: stack slots
// below sp, globals, and the constant pool. It is supplied by the VM, not
// by the heap, because only the VM knows its own live region.
type RootWalker func(mark func(value.Value))

// Stats summarizes one collection cycle, mirroring the teacher's
// RegistryGCStats shape but for reachability collection.
type Stats struct {
	LiveBefore  int
	LiveAfter   int
	Swept       int
	NewThreshold int
}

// String renders Stats with human-readable sizes for log lines.
func (s Stats) String() string {
	return fmt.Sprintf("live %s -> %s (swept %s), next threshold %s",
		humanize.Comma(int64(s.LiveBefore)),
		humanize.Comma(int64(s.LiveAfter)),
		humanize.Comma(int64(s.Swept)),
		humanize.Comma(int64(s.NewThreshold)),
	)
}

// StatsFunc is invoked after every collection, if set.
type StatsFunc func(Stats)

// Heap is the set of all allocated objects plus the threshold that
// triggers the next collection. Object identities are ObjectRef values
// handed out densely starting at 1 (0 is reserved as "no object").
type Heap struct {
	objects      map[value.ObjectRef]heapobj.Object
	marked       map[value.ObjectRef]bool
	nextRef      value.ObjectRef
	threshold    int // estimated bytes; an object's "size" is a small constant estimate, not exact.
	growthFactor int

	OnStats StatsFunc
}

// New creates an empty heap with the default collection threshold and
// growth factor.
func New() *Heap {
	return NewWithThreshold(DefaultThresholdBytes, GrowthFactor)
}

// NewWithThreshold creates an empty heap tuned with an initial collection
// threshold (estimated bytes) and growth factor, letting internal/config's
// droplet.toml "gc" table override spec.md §4.5's documented defaults
// without recompiling. Non-positive values fall back to the package
// defaults.
func NewWithThreshold(thresholdBytes, growthFactor int) *Heap {
	if thresholdBytes <= 0 {
		thresholdBytes = DefaultThresholdBytes
	}
	if growthFactor <= 0 {
		growthFactor = GrowthFactor
	}
	return &Heap{
		objects:      make(map[value.ObjectRef]heapobj.Object),
		marked:       make(map[value.ObjectRef]bool),
		nextRef:      1,
		threshold:    thresholdBytes,
		growthFactor: growthFactor,
	}
}

// Count returns the number of live objects currently tracked.
func (h *Heap) Count() int { return len(h.objects) }

// estimatedSize is a rough per-object byte estimate used to decide whether
// the heap has grown past its collection threshold. spec.md §4.5 allows
// either an object count or an estimated byte size; this implementation
// uses a cheap per-variant estimate rather than a precise accounting.
func estimatedSize(o heapobj.Object) int {
	switch obj := o.(type) {
	case *heapobj.String:
		return 32 + len(obj.Value)
	case *heapobj.Array:
		return 24 + len(obj.Elements)*24
	case *heapobj.Map:
		return 24 + len(obj.Entries)*48
	case *heapobj.Instance:
		return 24 + len(obj.ClassName) + len(obj.Fields)*48
	default:
		return 24
	}
}

func (h *Heap) totalEstimatedSize() int {
	total := 0
	for _, o := range h.objects {
		total += estimatedSize(o)
	}
	return total
}

func (h *Heap) alloc(o heapobj.Object) value.ObjectRef {
	ref := h.nextRef
	h.nextRef++
	h.objects[ref] = o
	return ref
}

// AllocateString allocates a String object and returns its reference.
func (h *Heap) AllocateString(s string) value.ObjectRef {
	return h.alloc(&heapobj.String{Value: s})
}

// AllocateArray allocates an empty Array object and returns its reference.
func (h *Heap) AllocateArray() value.ObjectRef {
	return h.alloc(&heapobj.Array{})
}

// AllocateMap allocates an empty Map object and returns its reference.
func (h *Heap) AllocateMap() value.ObjectRef {
	return h.alloc(heapobj.NewMap())
}

// AllocateInstance allocates an Instance object of the given class and
// returns its reference.
func (h *Heap) AllocateInstance(className string) value.ObjectRef {
	return h.alloc(heapobj.NewInstance(className))
}

// AllocateFunctionRef allocates a FunctionRef object and returns its
// reference.
func (h *Heap) AllocateFunctionRef(fnIndex uint32) value.ObjectRef {
	return h.alloc(&heapobj.FunctionRef{FnIndex: fnIndex})
}

// AllocateBoundMethod allocates a BoundMethod object and returns its
// reference.
func (h *Heap) AllocateBoundMethod(receiver value.Value, fnIndex uint32) value.ObjectRef {
	return h.alloc(&heapobj.BoundMethod{Receiver: receiver, FnIndex: fnIndex})
}

// Get resolves a reference to its live object. ok is false if the
// reference does not name a live object (it was never allocated, or it was
// already swept) — callers must treat that as the spec's invariant
// violation guard: "the Object variant ... is never dereferenced" on a
// dangling reference should not happen, but Get stays total so a caller bug
// degrades to a diagnostic instead of a panic.
func (h *Heap) Get(ref value.ObjectRef) (heapobj.Object, bool) {
	o, ok := h.objects[ref]
	return o, ok
}

// VisitLive calls fn for every currently live object, in no particular
// order. It exists for tooling (internal/snapshot) that needs to walk the
// whole live set rather than just the roots a RootWalker would visit.
func (h *Heap) VisitLive(fn func(ref value.ObjectRef, obj heapobj.Object)) {
	for ref, obj := range h.objects {
		fn(ref, obj)
	}
}

// ShouldCollect reports whether the heap has grown past the current
// threshold, per spec.md §4.2's "before each instruction fetch ... if heap
// size exceeds the collector threshold, run a collection".
func (h *Heap) ShouldCollect() bool {
	return h.totalEstimatedSize() > h.threshold
}

// Collect runs one mark-and-sweep cycle, using walker to find every root
// Value. Grounded on GC.h's collect()=markAll()+sweep() pair.
func (h *Heap) Collect(walker RootWalker) Stats {
	before := len(h.objects)

	for ref := range h.marked {
		delete(h.marked, ref)
	}

	walker(func(v value.Value) {
		h.markValue(v)
	})

	swept := 0
	for ref := range h.objects {
		if !h.marked[ref] {
			delete(h.objects, ref)
			swept++
		}
	}

	after := len(h.objects)
	newThreshold := after * h.growthFactor * 48 // rough bytes-per-object multiplier, see estimatedSize.
	if newThreshold < DefaultThresholdBytes {
		newThreshold = DefaultThresholdBytes
	}
	h.threshold = newThreshold

	stats := Stats{LiveBefore: before, LiveAfter: after, Swept: swept, NewThreshold: newThreshold}
	if h.OnStats != nil {
		h.OnStats(stats)
	}
	return stats
}

// markValue marks the object an Object Value references (a no-op for
// immediate Values) and recurses into its children, stopping at objects
// already marked to stay sound on cyclic graphs (design note: "the
// collector must visit cycles").
func (h *Heap) markValue(v value.Value) {
	if !v.IsObject() {
		return
	}
	ref := v.Ref()
	if h.marked[ref] {
		return
	}
	obj, ok := h.objects[ref]
	if !ok {
		return
	}
	h.marked[ref] = true
	obj.MarkChildren(h.markValue)
}
