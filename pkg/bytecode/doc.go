// Package bytecode is the Droplet opcode table: byte-sized tags, a
// metadata side-table describing operand widths, and a disassembler. It
// owns no runtime state — pkg/vm executes the opcodes defined here,
// pkg/bcasm emits them for test fixtures, and pkg/loader decodes the
// container format they live inside.
package bytecode
