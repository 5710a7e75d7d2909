package vm

import "github.com/droplet-lang/lang/pkg/value"

// doCall implements CALL fn_idx, argc (spec.md §4.1). argc argument Values
// are already on top of the stack in positional order; they become the
// new frame's locals 0..argc-1 in place, and any declared locals beyond
// argc are initialized with Nil.
func (v *VM) doCall(fnIdx uint32, argc int) bool {
	fn, ok := v.Module.Function(fnIdx)
	if !ok {
		v.diag.errorf("CALL: function index %d out of range", fnIdx)
		for i := 0; i < argc; i++ {
			v.pop()
		}
		v.push(value.Nil())
		return true
	}

	localBase := len(v.stack) - argc
	if localBase < 0 {
		v.diag.errorf("CALL: argc %d exceeds stack depth", argc)
		localBase = 0
	}

	for extra := int(fn.LocalCount) - argc; extra > 0; extra-- {
		v.push(value.Nil())
	}

	v.frames = append(v.frames, Frame{fn: fn, ip: 0, localBase: localBase})
	return true
}

// doReturn implements RETURN return_count (spec.md §4.1). It reports
// whether the interpreter loop should keep running: false only when the
// very last frame has just returned (the loop's own `for len(v.frames) > 0`
// condition then ends it naturally on the next check, but callers of
// doReturn from the end-of-code fallback path need an explicit signal
// since they don't immediately re-check the frame count themselves).
func (v *VM) doReturn(returnCount int) bool {
	frame := v.currentFrame()
	localBase := frame.localBase

	results := make([]value.Value, returnCount)
	for i := returnCount - 1; i >= 0; i-- {
		results[i] = v.pop()
	}

	v.frames = v.frames[:len(v.frames)-1]

	if localBase > len(v.stack) {
		localBase = len(v.stack)
	}
	v.stack = v.stack[:localBase]

	for _, r := range results {
		v.push(r)
	}

	return len(v.frames) > 0
}
