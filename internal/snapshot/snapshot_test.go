package snapshot

import (
	"testing"

	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/heapobj"
	"github.com/droplet-lang/lang/pkg/value"
)

func TestDumpDecodeRoundTrip(t *testing.T) {
	h := heap.New()
	strRef := h.AllocateString("hi")
	arrRef := h.AllocateArray()
	arr, ok := h.Get(arrRef)
	if !ok {
		t.Fatalf("array not found")
	}
	arr.(*heapobj.Array).Elements = append(arr.(*heapobj.Array).Elements, value.Object(strRef))

	mapRef := h.AllocateMap()
	m, _ := h.Get(mapRef)
	m.(*heapobj.Map).Entries["k"] = value.Object(strRef)

	instRef := h.AllocateInstance("T")
	inst, _ := h.Get(instRef)
	inst.(*heapobj.Instance).Fields["f"] = value.Int(1)

	data, err := Dump(h)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.LiveCount != 4 {
		t.Errorf("LiveCount = %d, want 4", doc.LiveCount)
	}

	var gotArr, gotMap, gotInst *Object
	for i := range doc.Objects {
		o := &doc.Objects[i]
		switch {
		case o.Ref == uint32(arrRef):
			gotArr = o
		case o.Ref == uint32(mapRef):
			gotMap = o
		case o.Ref == uint32(instRef):
			gotInst = o
		}
	}
	if gotArr == nil || gotArr.Variant != "Array" || len(gotArr.Elements) != 1 || gotArr.Elements[0] != uint32(strRef) {
		t.Errorf("array object wrong: %+v", gotArr)
	}
	if gotMap == nil || gotMap.Variant != "Map" || gotMap.Entries["k"] != uint32(strRef) {
		t.Errorf("map object wrong: %+v", gotMap)
	}
	if gotInst == nil || gotInst.Variant != "Instance" || gotInst.Fields["f"] != 0 {
		t.Errorf("instance object wrong: %+v", gotInst)
	}
}
