// Package trace keeps a bounded ring buffer of recently executed
// instructions for post-mortem inspection, msgpack-encoded so a dump can be
// written alongside a crash diagnostic and read back by a separate tool.
// Grounded on the teacher's vm/profiler.go (bounded per-site counters kept
// cheaply during normal execution) and restyled as a fixed-capacity event
// log rather than a hot/cold classifier.
package trace

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Event records one executed instruction: its position in the function's
// code, the opcode byte, and the operand stack depth right before it ran.
type Event struct {
	FuncName   string `msgpack:"func"`
	IP         int    `msgpack:"ip"`
	Opcode     byte   `msgpack:"op"`
	StackDepth int    `msgpack:"stack_depth"`
}

// Buffer is a fixed-capacity ring of the most recently recorded Events.
// Once full, each Record overwrites the oldest entry — a trace exists to
// answer "what ran just before this failure", not to be a complete log.
type Buffer struct {
	events []Event
	cap    int
	next   int
	filled bool
}

// NewBuffer creates a Buffer holding at most capacity Events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{events: make([]Event, capacity), cap: capacity}
}

// Record appends ev, overwriting the oldest entry once the buffer is full.
func (b *Buffer) Record(ev Event) {
	b.events[b.next] = ev
	b.next = (b.next + 1) % b.cap
	if b.next == 0 {
		b.filled = true
	}
}

// Events returns the recorded Events in execution order, oldest first.
func (b *Buffer) Events() []Event {
	if !b.filled {
		out := make([]Event, b.next)
		copy(out, b.events[:b.next])
		return out
	}
	out := make([]Event, b.cap)
	copy(out, b.events[b.next:])
	copy(out[b.cap-b.next:], b.events[:b.next])
	return out
}

// Len reports how many Events are currently held.
func (b *Buffer) Len() int {
	if b.filled {
		return b.cap
	}
	return b.next
}

// Dump msgpack-encodes the buffer's current contents, oldest first.
func (b *Buffer) Dump() ([]byte, error) {
	return msgpack.Marshal(b.Events())
}

// Decode parses a dump produced by Dump.
func Decode(data []byte) ([]Event, error) {
	var events []Event
	err := msgpack.Unmarshal(data, &events)
	return events, err
}
