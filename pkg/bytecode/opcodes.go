// Package bytecode defines the Droplet instruction set: one byte per
// opcode, little-endian immediates, grounded on spec.md §6.2 and the
// teacher's own opcode-table pattern (pkg/bytecode/opcodes.go in
// chazu-maggie organized opcodes into byte ranges by category with an
// OpcodeInfo side-table; this file keeps that shape).
package bytecode

import "fmt"

// Opcode is a single instruction tag.
type Opcode byte

const (
	// Stack manipulation (0x00-0x0F)
	OpPush Opcode = 0x00 // PUSH_CONST <idx:u32>
	OpPop  Opcode = 0x01 // POP
	OpDup  Opcode = 0x02 // DUP
	OpSwap Opcode = 0x03 // SWAP
	OpRot  Opcode = 0x04 // ROT: a b c -> b c a

	// Locals/globals (0x10-0x1F)
	OpLoadLocal   Opcode = 0x10 // LOAD_LOCAL <slot:u8>
	OpStoreLocal  Opcode = 0x11 // STORE_LOCAL <slot:u8>
	OpLoadGlobal  Opcode = 0x12 // LOAD_GLOBAL <name_idx:u32>
	OpStoreGlobal Opcode = 0x13 // STORE_GLOBAL <name_idx:u32>

	// Arithmetic (0x20-0x2F)
	OpAdd Opcode = 0x20
	OpSub Opcode = 0x21
	OpMul Opcode = 0x22
	OpDiv Opcode = 0x23
	OpMod Opcode = 0x24

	// Logical (0x30-0x3F)
	OpAnd Opcode = 0x30
	OpOr  Opcode = 0x31
	OpNot Opcode = 0x32

	// Comparison (0x40-0x4F)
	OpEq  Opcode = 0x40
	OpNeq Opcode = 0x41
	OpLt  Opcode = 0x42
	OpGt  Opcode = 0x43
	OpLte Opcode = 0x44
	OpGte Opcode = 0x45

	// Control (0x50-0x5F)
	OpJump        Opcode = 0x50 // JUMP <target:u32>
	OpJumpIfFalse Opcode = 0x51 // JUMP_IF_FALSE <target:u32>
	OpJumpIfTrue  Opcode = 0x52 // JUMP_IF_TRUE <target:u32>

	// Calls (0x60-0x6F)
	OpCall       Opcode = 0x60 // CALL <fn_idx:u32> <argc:u8>
	OpReturn     Opcode = 0x61 // RETURN <return_count:u8>
	OpCallNative Opcode = 0x62 // CALL_NATIVE <name_idx:u32> <argc:u8>
	OpCallFFI    Opcode = 0x63 // CALL_FFI <lib_idx:u32> <sym_idx:u32> <argc:u8> <sig:u8>

	// Object (0x70-0x7F)
	OpNewObject  Opcode = 0x70 // NEW_OBJECT <class_name_idx:u32>
	OpGetField   Opcode = 0x71 // GET_FIELD <name_idx:u32>
	OpSetField   Opcode = 0x72 // SET_FIELD <name_idx:u32>
	OpIsInstance Opcode = 0x73 // IS_INSTANCE <type_name_idx:u32>

	// Aggregate (0x80-0x8F)
	OpNewArray Opcode = 0x80
	OpArrayGet Opcode = 0x81
	OpArraySet Opcode = 0x82
	OpNewMap   Opcode = 0x83
	OpMapGet   Opcode = 0x84
	OpMapSet   Opcode = 0x85

	// String (0x90-0x9F)
	OpStringConcat  Opcode = 0x90
	OpStringLength  Opcode = 0x91
	OpStringSubstr  Opcode = 0x92 // STRING_SUBSTR <start:u32> <len:u32>
	OpStringEq      Opcode = 0x93
	OpStringGetChar Opcode = 0x94
)

// OperandKind describes the shape of one immediate operand following an
// opcode byte.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandU8
	OperandU16
	OperandU32
	OperandI32
	OperandF64
)

// Size returns the encoded width in bytes of one operand of this kind.
func (k OperandKind) Size() int {
	switch k {
	case OperandU8:
		return 1
	case OperandU16:
		return 2
	case OperandU32, OperandI32:
		return 4
	case OperandF64:
		return 8
	default:
		return 0
	}
}

// OpcodeInfo gives the mnemonic and operand layout of an opcode, the way
// the teacher's opcodeInfoTable paired an Opcode with name/stack-effect/
// operand-length metadata.
type OpcodeInfo struct {
	Name     string
	Operands []OperandKind
}

// OperandLen returns the total number of immediate bytes following the
// opcode byte.
func (info OpcodeInfo) OperandLen() int {
	n := 0
	for _, k := range info.Operands {
		n += k.Size()
	}
	return n
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPush: {"PUSH_CONST", []OperandKind{OperandU32}},
	OpPop:  {"POP", nil},
	OpDup:  {"DUP", nil},
	OpSwap: {"SWAP", nil},
	OpRot:  {"ROT", nil},

	OpLoadLocal:   {"LOAD_LOCAL", []OperandKind{OperandU8}},
	OpStoreLocal:  {"STORE_LOCAL", []OperandKind{OperandU8}},
	OpLoadGlobal:  {"LOAD_GLOBAL", []OperandKind{OperandU32}},
	OpStoreGlobal: {"STORE_GLOBAL", []OperandKind{OperandU32}},

	OpAdd: {"ADD", nil},
	OpSub: {"SUB", nil},
	OpMul: {"MUL", nil},
	OpDiv: {"DIV", nil},
	OpMod: {"MOD", nil},

	OpAnd: {"AND", nil},
	OpOr:  {"OR", nil},
	OpNot: {"NOT", nil},

	OpEq:  {"EQ", nil},
	OpNeq: {"NEQ", nil},
	OpLt:  {"LT", nil},
	OpGt:  {"GT", nil},
	OpLte: {"LTE", nil},
	OpGte: {"GTE", nil},

	OpJump:        {"JUMP", []OperandKind{OperandU32}},
	OpJumpIfFalse: {"JUMP_IF_FALSE", []OperandKind{OperandU32}},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", []OperandKind{OperandU32}},

	OpCall:       {"CALL", []OperandKind{OperandU32, OperandU8}},
	OpReturn:     {"RETURN", []OperandKind{OperandU8}},
	OpCallNative: {"CALL_NATIVE", []OperandKind{OperandU32, OperandU8}},
	OpCallFFI:    {"CALL_FFI", []OperandKind{OperandU32, OperandU32, OperandU8, OperandU8}},

	OpNewObject:  {"NEW_OBJECT", []OperandKind{OperandU32}},
	OpGetField:   {"GET_FIELD", []OperandKind{OperandU32}},
	OpSetField:   {"SET_FIELD", []OperandKind{OperandU32}},
	OpIsInstance: {"IS_INSTANCE", []OperandKind{OperandU32}},

	OpNewArray: {"NEW_ARRAY", nil},
	OpArrayGet: {"ARRAY_GET", nil},
	OpArraySet: {"ARRAY_SET", nil},
	OpNewMap:   {"NEW_MAP", nil},
	OpMapGet:   {"MAP_GET", nil},
	OpMapSet:   {"MAP_SET", nil},

	OpStringConcat:  {"STRING_CONCAT", nil},
	OpStringLength:  {"STRING_LENGTH", nil},
	OpStringSubstr:  {"STRING_SUBSTR", []OperandKind{OperandU32, OperandU32}},
	OpStringEq:      {"STRING_EQ", nil},
	OpStringGetChar: {"STRING_GET_CHAR", nil},
}

// Info returns metadata for op. An unrecognized opcode gets a synthetic
// "UNKNOWN(0x..)" entry rather than a panic, since the interpreter's own
// unknown-opcode handling (spec.md §7.2: fatal, loop stops) needs to name
// the offending byte in its diagnostic before halting.
func Info(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	if !ok {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}, false
	}
	return info, true
}

// String renders the opcode's mnemonic.
func (op Opcode) String() string {
	info, _ := Info(op)
	return info.Name
}

// InstructionLen returns 1 (the opcode byte) plus this opcode's operand
// bytes. Unknown opcodes report length 1.
func (op Opcode) InstructionLen() int {
	info, ok := Info(op)
	if !ok {
		return 1
	}
	return 1 + info.OperandLen()
}

// IsJump reports whether op is one of the three jump opcodes.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpJumpIfTrue
}

// AllOpcodes returns every defined opcode, used by tests asserting that
// every opcode has table metadata.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	return ops
}
