package loader

import (
	"testing"

	"github.com/droplet-lang/lang/pkg/bcasm"
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
)

func TestLoadRejectsBadMagic(t *testing.T) {
	h := heap.New()
	_, _, err := Load([]byte("XXXX\x01\x00\x00\x00\x00"), h)
	if err == nil || err.Error() != "Bad magic" {
		t.Fatalf("err = %v, want Bad magic", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	h := heap.New()
	_, _, err := Load([]byte("DLBC\x02\x00\x00\x00\x00"), h)
	if err == nil || err.Error() != "Unsupported version" {
		t.Fatalf("err = %v, want Unsupported version", err)
	}
}

func TestLoadRejectsTooShortBuffer(t *testing.T) {
	h := heap.New()
	_, _, err := Load([]byte("DL"), h)
	if err == nil {
		t.Fatalf("expected an error for a too-short buffer")
	}
}

func buildFixture() *bcasm.Builder {
	b := bcasm.New()
	b.AddStringConstant("main")
	fb := b.NewFunction("main", 0, 0)
	fb.EmitU8(bytecode.OpReturn, 0)
	fb.Finish()
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := buildFixture()
	h := heap.New()
	mod := b.Build(h)

	encoded, err := Encode(mod, h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h2 := heap.New()
	decoded, summary, err := Load(encoded, h2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary == "" {
		t.Errorf("expected a non-empty summary line")
	}

	idx, ok := decoded.Lookup("main")
	if !ok {
		t.Fatalf("expected function %q in decoded module", "main")
	}
	fn, ok := decoded.Function(idx)
	if !ok {
		t.Fatalf("Function(%d) not found", idx)
	}
	if len(fn.Code) != 2 || fn.Code[0] != byte(bytecode.OpReturn) || fn.Code[1] != 0 {
		t.Errorf("decoded code = %v, want RETURN 0", fn.Code)
	}
}

func TestLoadRejectsUnknownConstTag(t *testing.T) {
	h := heap.New()
	buf := []byte("DLBC\x01")
	buf = append(buf, 1, 0, 0, 0) // const_count = 1
	buf = append(buf, 9)          // unknown tag
	_, _, err := Load(buf, h)
	if err == nil || err.Error() != "Unknown const type 9" {
		t.Fatalf("err = %v, want Unknown const type 9", err)
	}
}

func TestLoadRejectsBadCodeSize(t *testing.T) {
	h := heap.New()
	buf := []byte("DLBC\x01")
	buf = append(buf, 0, 0, 0, 0) // const_count = 0
	buf = append(buf, 0, 0, 0, 0) // fn_count = 0
	buf = append(buf, 100, 0, 0, 0) // code_size_total = 100 but nothing follows
	_, _, err := Load(buf, h)
	if err == nil || err.Error() != "Bad code size" {
		t.Fatalf("err = %v, want Bad code size", err)
	}
}
