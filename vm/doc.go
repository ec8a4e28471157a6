// Package vm implements a Thompson-style NFA simulator over a linear
// bytecode stream. Given a compiled Program, it drives a pool of
// lightweight execution contexts ("threads," meaning NFA states, not OS
// threads) one input byte at a time, reporting every non-overlapping
// leftmost-longest match of every encoded pattern.
//
// INSTRUCTION ENCODING
//
// Every instruction is a fixed 8-byte record:
//
//	[ OpCode ][ Size ][ Literal ][ First ][ Last ][ Offset (24 bits) ]
//	    1        1         1         1        1          3
//
// Size counts how many additional 8-byte slots immediately follow as
// inline operand payload: BIT_VECTOR is always followed by exactly 4
// slots (32 bytes, one bit per possible byte value). JUMP_TABLE is
// always followed by exactly 256 slots, one per byte value, each itself
// a JUMP or HALT instruction; that count does not fit in Size, so Size
// stays 0 for JUMP_TABLE and JUMP_TABLE_RANGE and
// Instruction.PayloadLen derives their slot counts instead.
//
// Offset means different things by opcode: a code address for
// JUMP/FORK, a check-state id for CHECK_HALT/CHECK_BRANCH, a pattern
// label for MATCH/SAVE_LABEL.
//
// EXECUTION MODEL
//
// A frame is the work done for one input byte: every active thread takes
// a non-epsilon step (consuming that byte) and, if it survives, a full
// epsilon closure (FORK/JUMP/CHECK_HALT/CHECK_BRANCH/MATCH/SAVE_LABEL,
// none of which consume input) before being parked into the next frame's
// pool or discarded. Threads spawned by FORK mid-frame are walked by the
// same pass that discovered them (see ThreadList).
//
// Deduplication happens via CHECK_HALT/CHECK_BRANCH: both guard a
// per-frame check-state id, letting at most one thread per id survive a
// given frame regardless of how many parallel branches arrive there,
// which bounds the live thread count by program size.
//
// Match candidates are not reported as soon as a MATCH instruction
// fires (see doMatch), because a longer match for the same pattern may
// still be found by a still-running thread. A candidate is only emitted
// once a later, non-overlapping candidate supersedes it, or the input
// ends.
package vm
