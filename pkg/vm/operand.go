package vm

import (
	"encoding/binary"
	"math"
)

func readU8(operands []byte, off int) uint8 { return operands[off] }

func readU32(operands []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(operands[off:])
}

func readI32(operands []byte, off int) int32 {
	return int32(readU32(operands, off))
}

func readF64(operands []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(operands[off:]))
}
