package vm

import (
	"github.com/lightgrep/lgvm/internal/smallvec"
)

// VM drives one Thompson-NFA simulation over a shared, immutable Program.
// All mutable state (Active, Next, Matches, CheckStates) belongs to this
// VM instance alone; callers that want parallelism construct one VM per
// OS thread against the same Program.
type VM struct {
	prog *Program

	active *ThreadList
	next   *ThreadList

	matches []matchSpan

	checkStates []bool
	touched     smallvec.V[uint32]
	dirty       bool

	numPatterns      uint32
	numCheckedStates uint32

	searching bool

	traceBegin uint64
	traceEnd   uint64
	trace      func(offset uint64, threads []Thread)
}

type matchSpan struct {
	start uint64
	end   uint64
}

// NewVM constructs a VM bound to prog and runs the equivalent of init +
// reset.
func NewVM(prog *Program) *VM {
	v := &VM{
		traceBegin: UNALLOCATED,
		traceEnd:   UNALLOCATED,
	}
	v.init(prog)
	return v
}

// init stores prog, sizes Matches/CheckStates/thread pools from a single
// scan of the program, and resets runtime state.
func (v *VM) init(prog *Program) {
	v.prog = prog
	v.numPatterns = prog.NumPatterns()
	v.numCheckedStates = prog.NumCheckedStates()

	cap := len(prog.Body)
	v.active = NewThreadList(cap)
	v.next = NewThreadList(cap)

	v.matches = make([]matchSpan, v.numPatterns)
	v.checkStates = make([]bool, v.numCheckedStates)

	v.reset()
}

// Reset clears both thread pools and reinitializes Matches and
// CheckStates, restoring the VM to its post-init state.
func (v *VM) Reset() {
	v.reset()
}

func (v *VM) reset() {
	v.active.Reset()
	v.next.Reset()
	for i := range v.checkStates {
		v.checkStates[i] = false
	}
	v.touched.Clear()
	v.dirty = false
	for i := range v.matches {
		v.matches[i] = matchSpan{start: UNALLOCATED, end: 0}
	}
}

// SetTraceWindow arms a debug dump of Active's contents for every frame
// whose offset falls in [begin, end) and that processed at least one
// thread; frames with no threads are not reported. fn is invoked with the frame's
// absolute offset and a snapshot of Active. Passing a nil fn disarms
// tracing.
func (v *VM) SetTraceWindow(begin, end uint64, fn func(offset uint64, threads []Thread)) {
	v.traceBegin = begin
	v.traceEnd = end
	v.trace = fn
}

// execute runs the non-epsilon step for t against the current byte cur.
// It returns true iff t survived the step.
func (v *VM) execute(t *Thread, cur byte) bool {
	body := v.prog.Body
	in := body[t.PC]
	switch in.Op {
	case LIT:
		if cur == in.Literal {
			t.advance(body)
			return true
		}
	case EITHER:
		if cur == in.First || cur == in.Last {
			t.advance(body)
			return true
		}
	case RANGE:
		if in.First <= cur && cur <= in.Last {
			t.advance(body)
			return true
		}
	case BIT_VECTOR:
		wire := BitVectorPayload(body[t.PC+1 : t.PC+1+4])
		if wireBit(wire, cur) {
			t.PC += 1 + uint64(in.Size)
			return true
		}
	case JUMP_TABLE:
		target := body[t.PC+1+uint64(cur)]
		if target.Op == HALT {
			break
		}
		t.PC = uint64(target.Offset)
		return true
	case JUMP_TABLE_RANGE:
		if in.First <= cur && cur <= in.Last {
			target := body[t.PC+1+uint64(cur-in.First)]
			if target.Op != HALT {
				t.PC = uint64(target.Offset)
				return true
			}
		}
	}
	t.PC = UNALLOCATED
	return false
}

func wireBit(wire [32]byte, b byte) bool {
	return (wire[b/8]>>(b%8))&1 == 1
}

// isConsuming reports whether op is dispatched by the non-epsilon step
// (execute), as opposed to the epsilon step (executeEpsilon).
func isConsuming(op OpCode) bool {
	switch op {
	case LIT, EITHER, RANGE, BIT_VECTOR, JUMP_TABLE, JUMP_TABLE_RANGE:
		return true
	}
	return false
}

// executeEpsilon runs one epsilon step for t at the given absolute
// offset. It returns false only when t has been killed; otherwise it
// returns true, even if t now sits on a consuming instruction, which the
// caller checks for before the next step. It must only be called when
// body[t.PC] is not a consuming opcode.
func (v *VM) executeEpsilon(t *Thread, offset uint64) bool {
	body := v.prog.Body
	in := body[t.PC]
	switch in.Op {
	case JUMP:
		t.PC = uint64(in.Offset)
		return true
	case FORK:
		child := t.fork(uint64(in.Offset))
		v.active.Append(child)
		t.advance(body)
		return true
	case CHECK_HALT, CHECK_BRANCH:
		slot := in.Offset + 1 // slot 0 is the reserved dirty flag
		if v.checkStates[slot] {
			t.PC = UNALLOCATED
			return false
		}
		v.checkStates[slot] = true
		v.checkStates[0] = true
		v.dirty = true
		v.touched.Add(slot)
		t.advance(body)
		return true
	case MATCH:
		t.Label = in.Offset
		t.End = offset
		t.advance(body)
		return true
	case SAVE_LABEL:
		t.Label = in.Offset
		t.advance(body)
		return true
	case HALT:
		t.PC = UNALLOCATED
		return false
	default:
		t.PC = UNALLOCATED
		return false
	}
}

// doMatch applies leftmost-longest preference: a thread that just
// recorded (Start, End) for Label either extends, replaces, or loses
// against the currently-held candidate for that label, emitting the
// superseded candidate through cb when one is finalized.
func (v *VM) doMatch(t *Thread, cb HitCallback) {
	cur := v.matches[t.Label]
	switch {
	case cur.start == UNALLOCATED:
		v.matches[t.Label] = matchSpan{start: t.Start, end: t.End}
	case cur.start == t.Start && cur.end < t.End:
		v.matches[t.Label] = matchSpan{start: t.Start, end: t.End}
	case cur.end <= t.Start:
		cb.Collect(SearchHit{Offset: cur.start, Length: cur.end - cur.start, Label: t.Label})
		v.matches[t.Label] = matchSpan{start: t.Start, end: t.End}
	}
}

// flushEpsilon drives a pure epsilon closure for t at the final offset
// of a chunk, with no byte left to consume. The moment it reaches a
// consuming instruction it appends t to Next and returns: that thread
// may still extend its match against a later chunk, so it is kept
// instead of being discarded.
func (v *VM) flushEpsilon(t *Thread, offset uint64, cb HitCallback) {
	for {
		if isConsuming(v.prog.Body[t.PC].Op) {
			v.next.Append(*t)
			return
		}
		if !v.executeEpsilon(t, offset) {
			return
		}
		if t.End == offset {
			v.doMatch(t, cb)
		}
	}
}

// executeFrame processes one input byte cur at absolute offset, walking
// Active (including any threads FORK appends mid-walk), cold-starting a
// new thread when First permits, and swapping pools once the frame is
// done.
func (v *VM) executeFrame(cur byte, offset uint64, cb HitCallback) {
	afterOffset := offset + 1

	i := 0
	for i < v.active.Len() {
		v.runStep(v.active.At(i), cur, afterOffset, cb)
		i++
	}

	if v.prog.First.Match(cur) {
		var fresh Thread
		fresh.init(offset)
		v.active.Append(fresh)
		for i < v.active.Len() {
			t := v.active.At(i)
			v.runStep(t, cur, afterOffset, cb)
			i++
		}
	}

	if i > 0 {
		if v.trace != nil && v.traceBegin <= offset && offset < v.traceEnd {
			v.trace(offset, v.snapshotActive())
		}
		v.cleanup()
	}
}

// runStep drives one thread through a full frame: any epsilon steps
// before its first consuming instruction (this happens for a freshly
// cold-started thread whose very first instruction is an epsilon op,
// e.g. a FORK at PC 0), one consuming step against cur, then epsilon
// closure until it reaches a consuming instruction again. consumed tracks whether this frame
// has already spent its one consuming step; once it has, landing on a
// second consuming instruction means the thread is done for this byte
// and is parked into Next to retry against the next one.
//
// afterOffset is the absolute offset one past cur, the value a MATCH
// firing during this frame records as End.
func (v *VM) runStep(t *Thread, cur byte, afterOffset uint64, cb HitCallback) {
	consumed := false
	for {
		if isConsuming(v.prog.Body[t.PC].Op) {
			if consumed {
				v.next.Append(*t)
				return
			}
			if !v.execute(t, cur) {
				return
			}
			consumed = true
			continue
		}
		if !v.executeEpsilon(t, afterOffset) {
			return
		}
		if t.End == afterOffset {
			v.doMatch(t, cb)
		}
	}
}

func (v *VM) snapshotActive() []Thread {
	n := v.active.Len()
	out := make([]Thread, n)
	for i := 0; i < n; i++ {
		out[i] = *v.active.At(i)
	}
	return out
}

// cleanup swaps Active with Next and clears CheckStates if the dirty bit
// was set, using the touched-ids list to avoid a full scan when only a
// few check-states were flipped this frame.
func (v *VM) cleanup() {
	v.active.Swap(v.next)
	v.next.Reset()
	if v.dirty {
		if v.touched.Len()*4 < len(v.checkStates) {
			v.touched.ForEach(func(id uint32) {
				v.checkStates[id] = false
			})
		} else {
			for i := range v.checkStates {
				v.checkStates[i] = false
			}
		}
		v.touched.Clear()
		v.dirty = false
	}
}

// flush runs a final epsilon closure pass on Active at the post-chunk
// offset, then drains every pending Matches entry to cb.
func (v *VM) flush(offset uint64, cb HitCallback) {
	for i := 0; i < v.active.Len(); i++ {
		v.flushEpsilon(v.active.At(i), offset, cb)
	}
	for label := range v.matches {
		m := v.matches[label]
		if m.start != UNALLOCATED {
			cb.Collect(SearchHit{Offset: m.start, Length: m.end - m.start, Label: uint32(label)})
			v.matches[label] = matchSpan{start: UNALLOCATED, end: 0}
		}
	}
	v.cleanup()
}

// Search drives the simulation across input[begin:end], whose first byte
// corresponds to absolute offset startOffset, invoking cb for every
// finalized SearchHit. It returns true iff threads remain active after
// the flush, meaning a later chunk starting where this one ended may
// still extend or complete a match.
//
// Search must not be called reentrantly from within cb; doing so returns
// ErrReentrantSearch without touching VM state.
func (v *VM) Search(input []byte, startOffset uint64, cb HitCallback) (bool, error) {
	if v.searching {
		return false, ErrReentrantSearch
	}
	v.searching = true
	defer func() { v.searching = false }()

	offset := startOffset
	for _, cur := range input {
		v.executeFrame(cur, offset, cb)
		offset++
	}
	v.flush(offset, cb)
	return v.active.Len() > 0, nil
}
