package vm

import "github.com/droplet-lang/lang/pkg/module"

// Frame is one in-progress function invocation. Frames do not own a stack
// slice of their own; localBase indexes into the VM's single shared operand
// stack (spec.md §4.1, Design Notes "shared operand stack across frames").
//
// return_count is plural in RETURN's encoding (spec.md §6.2: "RETURN u8")
// because the original implementation's do_return pops a run of values
// "so that we can have go like err handling" — a function can hand back a
// result alongside a trailing status value without a dedicated tuple type.
type Frame struct {
	fn        *module.Function
	ip        int
	localBase int
}
