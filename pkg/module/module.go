// Package module holds the loaded, immutable form of a Droplet program: its
// constant pool, its function table, and the function name index, per
// spec.md §4.3. Modeled on the teacher's Chunk (pkg/bytecode/chunk.go), but
// a Module aggregates the whole program's functions rather than one
// block/method's code.
package module

import "github.com/droplet-lang/lang/pkg/value"

// Function is one entry in the function table: its code, arity, and local
// slot count. local_count >= arg_count holds for a well-formed module;
// neither the Loader nor pkg/bcasm checks it.
type Function struct {
	Name       string
	Code       []byte
	ArgCount   uint8
	LocalCount uint8
}

// Module is immutable after Load: nothing in the VM mutates a Constants
// slice, a Functions slice, or the NameIndex map once loading succeeds.
type Module struct {
	Constants []value.Value
	Functions []Function
	NameIndex map[string]uint32
}

// New creates an empty Module with an initialized name index, ready for a
// Loader (or a test's bcasm.Builder) to populate.
func New() *Module {
	return &Module{NameIndex: make(map[string]uint32)}
}

// Lookup returns the function-table index for name, and whether it exists.
func (m *Module) Lookup(name string) (uint32, bool) {
	idx, ok := m.NameIndex[name]
	return idx, ok
}

// Function returns the function at idx, or false if idx is out of range.
func (m *Module) Function(idx uint32) (*Function, bool) {
	if int(idx) >= len(m.Functions) {
		return nil, false
	}
	return &m.Functions[idx], true
}
