// Package bcasm is a small bytecode assembler used by tests and tooling to
// build well-formed Droplet modules directly, opcode by opcode, without a
// compiler front end. It plays the same role the original C++
// implementation's DBCBuilder (referenced from
// original_source/src/compiler/CodeGenerator.h) played for that project's
// test suite: the compiler front end is out of scope for this repository
// (spec.md §1), but the execution core still needs a way to construct
// fixtures, and a textual compiler would smuggle front-end scope back in.
package bcasm

import (
	"encoding/binary"
	"math"

	"github.com/droplet-lang/lang/pkg/bytecode"
	"github.com/droplet-lang/lang/pkg/heap"
	"github.com/droplet-lang/lang/pkg/module"
	"github.com/droplet-lang/lang/pkg/value"
)

// Builder accumulates constants and functions for a Module.
type Builder struct {
	mod            *module.Module
	pendingStrings map[uint32]string
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{mod: module.New(), pendingStrings: make(map[uint32]string)}
}

// AddConstant appends a constant Value and returns its index. Unlike the
// teacher's string-deduplicating AddConstant, this does not dedup — tests
// often want precise, predictable indices.
func (b *Builder) AddConstant(v value.Value) uint32 {
	idx := uint32(len(b.mod.Constants))
	b.mod.Constants = append(b.mod.Constants, v)
	return idx
}

// AddStringConstant records a string constant. Its slot holds Nil until
// Build(heap) resolves every pending string into a real heap String object,
// exactly as the Loader does for a .dbc file's string constants (spec.md
// §4.4: "String constants are allocated through the GC allocator during
// load so they participate in normal reachability from the constant pool").
func (b *Builder) AddStringConstant(s string) uint32 {
	idx := b.AddConstant(value.Nil())
	b.pendingStrings[idx] = s
	return idx
}

// FunctionBuilder accumulates one function's code.
type FunctionBuilder struct {
	parent     *Builder
	name       string
	argCount   uint8
	localCount uint8
	code       []byte
}

// NewFunction starts a new function with the given arity and local slot
// count. A well-formed module has localCount >= argCount; Finish does not
// check it.
func (b *Builder) NewFunction(name string, argCount, localCount uint8) *FunctionBuilder {
	return &FunctionBuilder{parent: b, name: name, argCount: argCount, localCount: localCount}
}

// Offset returns the current code offset, for recording jump targets.
func (fb *FunctionBuilder) Offset() uint32 { return uint32(len(fb.code)) }

// Emit appends an opcode with no operands.
func (fb *FunctionBuilder) Emit(op bytecode.Opcode) *FunctionBuilder {
	fb.code = append(fb.code, byte(op))
	return fb
}

// EmitU8 appends an opcode followed by a single u8 operand.
func (fb *FunctionBuilder) EmitU8(op bytecode.Opcode, v uint8) *FunctionBuilder {
	fb.code = append(fb.code, byte(op), v)
	return fb
}

// EmitU32 appends an opcode followed by a single little-endian u32 operand.
func (fb *FunctionBuilder) EmitU32(op bytecode.Opcode, v uint32) *FunctionBuilder {
	fb.code = append(fb.code, byte(op))
	fb.code = appendU32(fb.code, v)
	return fb
}

// EmitU32U8 appends an opcode followed by a u32 then a u8 operand (CALL,
// CALL_NATIVE's shape).
func (fb *FunctionBuilder) EmitU32U8(op bytecode.Opcode, a uint32, b uint8) *FunctionBuilder {
	fb.code = append(fb.code, byte(op))
	fb.code = appendU32(fb.code, a)
	fb.code = append(fb.code, b)
	return fb
}

// EmitCallFFI appends a CALL_FFI instruction.
func (fb *FunctionBuilder) EmitCallFFI(libIdx, symIdx uint32, argc, sig uint8) *FunctionBuilder {
	fb.code = append(fb.code, byte(bytecode.OpCallFFI))
	fb.code = appendU32(fb.code, libIdx)
	fb.code = appendU32(fb.code, symIdx)
	fb.code = append(fb.code, argc, sig)
	return fb
}

// EmitU32U32 appends an opcode followed by two little-endian u32 operands
// (STRING_SUBSTR's shape).
func (fb *FunctionBuilder) EmitU32U32(op bytecode.Opcode, a, b uint32) *FunctionBuilder {
	fb.code = append(fb.code, byte(op))
	fb.code = appendU32(fb.code, a)
	fb.code = appendU32(fb.code, b)
	return fb
}

// PatchJumpTarget overwrites the u32 operand at byteOffset (the position
// immediately after the opcode byte of a JUMP* instruction) with target.
func (fb *FunctionBuilder) PatchJumpTarget(byteOffset uint32, target uint32) {
	binary.LittleEndian.PutUint32(fb.code[byteOffset:byteOffset+4], target)
}

// EmitJumpPlaceholder emits a jump opcode with a zero placeholder operand
// and returns the offset of the operand (for a later PatchJumpTarget call).
func (fb *FunctionBuilder) EmitJumpPlaceholder(op bytecode.Opcode) uint32 {
	fb.code = append(fb.code, byte(op))
	operandOffset := uint32(len(fb.code))
	fb.code = appendU32(fb.code, 0)
	return operandOffset
}

// Finish appends the function to the parent Builder's module and returns
// its function-table index.
func (fb *FunctionBuilder) Finish() uint32 {
	idx := uint32(len(fb.parent.mod.Functions))
	fb.parent.mod.Functions = append(fb.parent.mod.Functions, module.Function{
		Name:       fb.name,
		Code:       fb.code,
		ArgCount:   fb.argCount,
		LocalCount: fb.localCount,
	})
	fb.parent.mod.NameIndex[fb.name] = idx
	return idx
}

// Build resolves every pending string constant into a heap-allocated
// String object (via h) and returns the finished, immutable Module.
func (b *Builder) Build(h *heap.Heap) *module.Module {
	for idx, s := range b.pendingStrings {
		ref := h.AllocateString(s)
		b.mod.Constants[idx] = value.Object(ref)
	}
	return b.mod
}

// Module returns the module built so far without resolving string
// constants — useful when a test only needs to inspect the function table
// or feed the module through pkg/loader's Encode for a round-trip test.
func (b *Builder) Module() *module.Module {
	return b.mod
}

func appendU32(code []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(code, buf[:]...)
}

// DoubleBits is a small helper for tests that need the raw bits of a
// float64 immediate (e.g. to hand-assemble a PUSH_CONST of a Double
// constant stored as an f64 in a .dbc buffer produced by pkg/loader's
// Encode, rather than via this Builder's in-process Value constants).
func DoubleBits(f float64) uint64 {
	return math.Float64bits(f)
}
