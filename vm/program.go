package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/lightgrep/lgvm/byteset"
)

// Program is a compiled pattern set: an ordered Instruction body plus the
// header metadata the VM needs to size its runtime state. It is
// constructed once by an upstream compiler and is immutable and safe to
// share across VM instances thereafter.
type Program struct {
	// NumChecked is the number of distinct CHECK_HALT/CHECK_BRANCH
	// indices used by Body, sized to include the reserved dirty-flag
	// slot at index 0.
	NumChecked uint32

	// First is the set of bytes on which a fresh thread may legally
	// cold-start: the first-byte set of the union of compiled patterns.
	First *byteset.Bitmap

	// Body is the instruction stream. Index 0 is the entry PC for a new
	// thread.
	Body []Instruction
}

// NumPatterns returns 1 + the largest MATCH.Offset appearing in Body, the
// number of distinct pattern labels the program can report.
func (p *Program) NumPatterns() uint32 {
	var max uint32
	for _, in := range p.Body {
		if in.Op == MATCH && in.Offset >= max {
			max = in.Offset + 1
		}
	}
	return max
}

// NumCheckedStates returns 2 + the largest CHECK_HALT/CHECK_BRANCH
// operand appearing in Body (index 0 reserved as the dirty flag), the
// size a VM sizes its CheckStates array to. It is recomputed by scanning
// Body rather than trusting the NumChecked header field, matching the
// VM's init contract. A program with no CHECK ops still reports 2, the
// minimum needed to hold the reserved dirty-flag slot.
func (p *Program) NumCheckedStates() uint32 {
	var max uint32
	for _, in := range p.Body {
		if (in.Op == CHECK_HALT || in.Op == CHECK_BRANCH) && in.Offset >= max {
			max = in.Offset
		}
	}
	return max + 2
}

// Equal reports whether p and other have identical headers and
// element-wise identical bodies.
func (p *Program) Equal(other *Program) bool {
	if other == nil {
		return false
	}
	if p.NumChecked != other.NumChecked {
		return false
	}
	if (p.First == nil) != (other.First == nil) {
		return false
	}
	if p.First != nil && p.First.ToWire() != other.First.ToWire() {
		return false
	}
	if len(p.Body) != len(other.Body) {
		return false
	}
	for i := range p.Body {
		if p.Body[i] != other.Body[i] {
			return false
		}
	}
	return true
}

// Marshal encodes the program per the wire layout: NumChecked (4 bytes,
// little-endian), First (32 bytes), then the instruction stream as raw
// fixed-size records in order. The format is undocumented and unversioned,
// round-trip-only within the same build, never validated defensively.
func (p *Program) Marshal() []byte {
	out := make([]byte, 4+32+len(p.Body)*InstructionSize)
	binary.LittleEndian.PutUint32(out[0:4], p.NumChecked)

	first := p.First
	if first == nil {
		first = &byteset.Bitmap{}
	}
	wire := first.ToWire()
	copy(out[4:36], wire[:])

	for i, in := range p.Body {
		off := 36 + i*InstructionSize
		in.Encode(out[off : off+InstructionSize])
	}
	return out
}

// Unmarshal decodes a Program from its wire form. Any trailing bytes that
// don't form a complete instruction record are silently dropped. Input
// shorter than the 36-byte header is rejected with a DisassembleError
// wrapping ErrTruncated.
func Unmarshal(data []byte) (*Program, error) {
	if len(data) < 4+32 {
		return nil, &DisassembleError{Err: ErrTruncated, PC: 0}
	}
	p := &Program{
		NumChecked: binary.LittleEndian.Uint32(data[0:4]),
	}
	var wire [32]byte
	copy(wire[:], data[4:36])
	p.First = byteset.FromWire(wire)

	body := data[36:]
	n := len(body) / InstructionSize
	p.Body = make([]Instruction, n)
	for i := 0; i < n; i++ {
		off := i * InstructionSize
		p.Body[i] = DecodeInstruction(body[off : off+InstructionSize])
	}
	return p, nil
}

// Validate walks Body checking the structural and semantic promises the
// upstream compiler contract makes: every JUMP/FORK target (including the
// JUMP slots of a jump table) is a valid index into Body, BIT_VECTOR and
// JUMP_TABLE/JUMP_TABLE_RANGE are followed by their full payload, and
// every SAVE_LABEL's label is below NumPatterns. The hot
// loop never calls this itself (it trusts its input, per contract); it
// exists for callers that load an untrusted or hand-assembled Program and
// want to reject a malformed one before constructing a VM.
func (p *Program) Validate() error {
	n := uint64(len(p.Body))
	numPatterns := p.NumPatterns()
	var pc uint64
	for pc < n {
		in := p.Body[pc]
		if !in.Op.valid() {
			return &DisassembleError{Err: ErrUnknownOpcode, PC: pc}
		}
		switch in.Op {
		case JUMP, FORK:
			if uint64(in.Offset) >= n {
				return &DisassembleError{Err: ErrIndexRange, PC: pc}
			}
		case BIT_VECTOR:
			if in.Size != 4 || pc+1+4 > n {
				return &DisassembleError{Err: ErrBadBitVector, PC: pc}
			}
		case JUMP_TABLE:
			if pc+1+in.PayloadLen() > n {
				return &DisassembleError{Err: ErrBadJumpTable, PC: pc}
			}
		case JUMP_TABLE_RANGE:
			want := uint64(in.Last) - uint64(in.First) + 1
			if pc+1+want > n {
				return &DisassembleError{Err: ErrBadJumpTable, PC: pc}
			}
		case SAVE_LABEL:
			if in.Offset >= numPatterns {
				return &RuntimeError{Err: ErrIndexRange, PC: pc, Op: SAVE_LABEL}
			}
		}
		if in.Op == JUMP_TABLE || in.Op == JUMP_TABLE_RANGE {
			for i := pc + 1; i <= pc+in.PayloadLen(); i++ {
				if slot := p.Body[i]; slot.Op == JUMP && uint64(slot.Offset) >= n {
					return &DisassembleError{Err: ErrIndexRange, PC: i}
				}
			}
		}
		pc += 1 + in.PayloadLen()
	}
	return nil
}

// Label names a code address for disassembly, either one recorded by the
// compiler (Public) or synthesized on the fly for an unnamed jump target.
type Label struct {
	PC     uint64
	Public bool
	Name   string
}

// FindLabel returns the public label for PC if labels has an entry for
// it, or else a synthesized ".ANON@<hex>" label.
func (p *Program) FindLabel(pc uint64, labels map[uint64]string) *Label {
	if name, ok := labels[pc]; ok {
		return &Label{PC: pc, Public: true, Name: name}
	}
	return &Label{PC: pc, Public: false, Name: fmt.Sprintf(".ANON@%x", pc)}
}

// Disassemble writes a textual listing of the program body to w, with
// synthetic or supplied labels at every JUMP/FORK target. labels may be
// nil.
func (p *Program) Disassemble(w io.Writer, labels map[uint64]string) (int, error) {
	var buf bytes.Buffer
	total := 0

	flush := func() error {
		n, err := w.Write(buf.Bytes())
		total += n
		buf.Reset()
		return err
	}

	targets, err := p.jumpTargets()
	if err != nil {
		return total, err
	}

	sortedTargets := make([]uint64, 0, len(targets))
	for pc := range targets {
		sortedTargets = append(sortedTargets, pc)
	}
	sort.Slice(sortedTargets, func(i, j int) bool { return sortedTargets[i] < sortedTargets[j] })

	var pc uint64
	for int(pc) < len(p.Body) {
		if targets[pc] {
			label := p.FindLabel(pc, labels)
			buf.WriteString(label.Name)
			buf.WriteString(":\n")
			if err := flush(); err != nil {
				return total, err
			}
		}

		in := p.Body[pc]
		buf.WriteByte('\t')
		p.writeInstruction(&buf, in, pc, labels)
		buf.WriteByte('\n')
		if err := flush(); err != nil {
			return total, err
		}
		pc += 1 + in.PayloadLen()
	}
	return total, nil
}

func (p *Program) writeInstruction(buf *bytes.Buffer, in Instruction, pc uint64, labels map[uint64]string) {
	switch in.Op {
	case JUMP, FORK:
		label := p.FindLabel(uint64(in.Offset), labels)
		fmt.Fprintf(buf, "%s %s", in.Op, label.Name)
	case MATCH, SAVE_LABEL:
		fmt.Fprintf(buf, "%s label=%d", in.Op, in.Offset)
	default:
		buf.WriteString(in.String())
	}
}

// jumpTargets returns the set of PCs that JUMP/FORK instructions in the
// body reference, for label placement. CHECK_HALT/CHECK_BRANCH.Offset is
// a check-state id and MATCH/SAVE_LABEL.Offset a pattern label, neither
// a code address, so they are not considered jump targets.
func (p *Program) jumpTargets() (map[uint64]bool, error) {
	targets := make(map[uint64]bool)
	var pc uint64
	for int(pc) < len(p.Body) {
		in := p.Body[pc]
		if !in.Op.valid() {
			return nil, &DisassembleError{Err: ErrUnknownOpcode, PC: pc}
		}
		switch in.Op {
		case JUMP, FORK:
			targets[uint64(in.Offset)] = true
		}
		pc += 1 + in.PayloadLen()
	}
	return targets, nil
}
