package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Disassemble renders code as a human-readable instruction listing, one
// line per instruction, in the style of the teacher's Chunk.Disassemble.
// constants, if non-nil, is used to annotate PUSH_CONST/*_GLOBAL/name-index
// operands with the constant they resolve to.
func Disassemble(code []byte, constants func(idx uint32) string) string {
	var sb strings.Builder
	offset := 0
	for offset < len(code) {
		line, n := disassembleInstruction(code, offset, constants)
		fmt.Fprintf(&sb, "%04X  %s\n", offset, line)
		if n <= 0 {
			break
		}
		offset += n
	}
	return sb.String()
}

func disassembleInstruction(code []byte, offset int, constants func(idx uint32) string) (string, int) {
	op := Opcode(code[offset])
	info, known := Info(op)
	if !known {
		return info.Name, 1
	}

	pos := offset + 1
	var operandStrs []string
	for _, kind := range info.Operands {
		if pos+kind.Size() > len(code) {
			operandStrs = append(operandStrs, "<truncated>")
			pos = len(code)
			break
		}
		switch kind {
		case OperandU8:
			operandStrs = append(operandStrs, fmt.Sprintf("%d", code[pos]))
			pos++
		case OperandU16:
			operandStrs = append(operandStrs, fmt.Sprintf("%d", binary.LittleEndian.Uint16(code[pos:])))
			pos += 2
		case OperandU32:
			v := binary.LittleEndian.Uint32(code[pos:])
			s := fmt.Sprintf("%d", v)
			if constants != nil && (op == OpPush || op == OpLoadGlobal || op == OpStoreGlobal ||
				op == OpNewObject || op == OpGetField || op == OpSetField || op == OpIsInstance ||
				op == OpCallNative) {
				s = fmt.Sprintf("%d %q", v, constants(v))
			}
			operandStrs = append(operandStrs, s)
			pos += 4
		case OperandI32:
			operandStrs = append(operandStrs, fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(code[pos:]))))
			pos += 4
		case OperandF64:
			bits := binary.LittleEndian.Uint64(code[pos:])
			operandStrs = append(operandStrs, fmt.Sprintf("%g", math.Float64frombits(bits)))
			pos += 8
		}
	}

	line := info.Name
	if len(operandStrs) > 0 {
		line += " " + strings.Join(operandStrs, ", ")
	}
	return line, pos - offset
}
