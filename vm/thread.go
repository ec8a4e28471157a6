package vm

import "math"

// UNALLOCATED is the sentinel for "no value here": a dead Thread's PC, an
// unset Thread.End, and an empty Matches slot all use it. It is a named
// constant rather than module-global mutable state.
const UNALLOCATED = math.MaxUint64

// Thread is a single NFA execution context: a program counter, the
// pattern label it is currently associated with, and the byte span of
// the in-progress (or most recently recorded) match. PC == UNALLOCATED
// marks a dead thread.
type Thread struct {
	PC    uint64
	Label uint32
	Start uint64
	End   uint64
}

// init resets t to a freshly cold-started thread: PC at the program's
// entry instruction, Label 0, Start at offset, and no recorded End.
func (t *Thread) init(offset uint64) {
	t.PC = 0
	t.Label = 0
	t.Start = offset
	t.End = UNALLOCATED
}

// fork returns a copy of t with PC redirected to target; Label, Start,
// and End carry over unchanged, matching FORK's "copy of parent, PC
// jumped to target, same Start" semantics.
func (t Thread) fork(target uint64) Thread {
	t.PC = target
	return t
}

// advance moves PC past the instruction at the current PC, accounting
// for that instruction's inline operand payload (Size trailing slots).
func (t *Thread) advance(body []Instruction) {
	t.PC += 1 + uint64(body[t.PC].Size)
}
