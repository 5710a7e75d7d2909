package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/droplet-lang/lang/pkg/bcasm"
	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/loader"
	"github.com/droplet-lang/lang/pkg/value"
)

func writeFixtureModule(t *testing.T, dir string) string {
	t.Helper()
	b := bcasm.New()
	b.AddStringConstant("main")
	fb := b.NewFunction("main", 0, 0)
	two := b.AddConstant(value.Int(2))
	three := b.AddConstant(value.Int(3))
	fb.EmitU32(bytecode.OpPush, two)
	fb.EmitU32(bytecode.OpPush, three)
	fb.Emit(bytecode.OpAdd)
	fb.EmitU8(bytecode.OpReturn, 1)
	fb.Finish()

	h := heap.New()
	mod := b.Build(h)
	data, err := loader.Encode(mod, h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(dir, "fixture.dbc")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestRunCommandExecutesModule(t *testing.T) {
	dir := t.TempDir()
	path := writeFixtureModule(t, dir)

	var out bytes.Buffer
	cmd := runCmd
	cmd.SetArgs([]string{path})
	cmd.SetOut(&out)

	if err := runModule(cmd, []string{path}); err != nil {
		t.Fatalf("runModule: %v", err)
	}
	if got := out.String(); !bytes.Contains([]byte(got), []byte("5")) {
		t.Errorf("output = %q, want it to contain the result 5", got)
	}
}

func TestDisasmCommandListsFunctions(t *testing.T) {
	dir := t.TempDir()
	path := writeFixtureModule(t, dir)

	var out bytes.Buffer
	cmd := disasmCmd
	cmd.SetOut(&out)

	if err := disasmModule(cmd, []string{path}); err != nil {
		t.Fatalf("disasmModule: %v", err)
	}
	if got := out.String(); !bytes.Contains([]byte(got), []byte("func main")) {
		t.Errorf("output = %q, want a \"func main\" header", got)
	}
}
