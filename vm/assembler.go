package vm

import (
	"fmt"

	"github.com/lightgrep/lgvm/byteset"
)

// Assembler builds a Program body out of Instructions and named labels,
// resolving forward label references once the whole program is known.
// Because every Instruction is fixed-width, this needs none of the
// relocation machinery a variable-length encoding requires: a label's
// PC is just the slot index at the point it's marked, and a fixup only
// ever rewrites a single Offset field in place.
type Assembler struct {
	body    []Instruction
	labels  map[string]uint64
	fixups  []fixup
	public  map[uint64]string
}

type fixup struct {
	pc    uint64 // index of the instruction whose Offset needs patching
	label string
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint64),
		public: make(map[uint64]string),
	}
}

// Label marks the current position under name, for later reference by
// EmitJumpTo/EmitForkTo. The name recorded for disassembly is prefixed
// with "." so public and synthesized (".ANON@<hex>") labels read the
// same way in a listing.
func (a *Assembler) Label(name string) {
	pc := uint64(len(a.body))
	a.labels[name] = pc
	a.public[pc] = "." + name
}

// Emit appends one already-built instruction (LIT, EITHER, RANGE, HALT,
// CHECK_HALT, CHECK_BRANCH, or any instruction whose operand needs no
// label resolution).
func (a *Assembler) Emit(in Instruction) {
	a.body = append(a.body, in)
}

// EmitBitVector appends a BIT_VECTOR instruction and its trailing
// payload slots.
func (a *Assembler) EmitBitVector(set *byteset.Bitmap) {
	a.body = append(a.body, MakeBitVector(set.ToWire())...)
}

// EmitJumpTable appends a JUMP_TABLE instruction and its 256 target
// slots.
func (a *Assembler) EmitJumpTable(targets [256]Instruction) error {
	slots, err := MakeJumpTable(targets)
	if err != nil {
		return err
	}
	a.body = append(a.body, slots...)
	return nil
}

// EmitJumpTableRange appends a JUMP_TABLE_RANGE instruction and its
// target slots.
func (a *Assembler) EmitJumpTableRange(first, last byte, targets []Instruction) error {
	slots, err := MakeJumpTableRange(first, last, targets)
	if err != nil {
		return err
	}
	a.body = append(a.body, slots...)
	return nil
}

// EmitJumpTo appends a JUMP to the PC that label will resolve to.
func (a *Assembler) EmitJumpTo(label string) {
	a.emitFixup(JUMP, label)
}

// EmitForkTo appends a FORK spawning a new thread at label.
func (a *Assembler) EmitForkTo(label string) {
	a.emitFixup(FORK, label)
}

// EmitMatch appends a MATCH instruction recording pattern label.
func (a *Assembler) EmitMatch(label uint32) error {
	in, err := MakeMatch(label)
	if err != nil {
		return err
	}
	a.body = append(a.body, in)
	return nil
}

// EmitSaveLabel appends a SAVE_LABEL whose operand is a literal pattern
// id (not a code address).
func (a *Assembler) EmitSaveLabel(patternLabel uint32) error {
	in, err := MakeSaveLabel(patternLabel)
	if err != nil {
		return err
	}
	a.body = append(a.body, in)
	return nil
}

func (a *Assembler) emitFixup(op OpCode, label string) {
	pc := uint64(len(a.body))
	a.body = append(a.body, Instruction{Op: op})
	a.fixups = append(a.fixups, fixup{pc: pc, label: label})
}

// Assemble resolves all pending label fixups and returns the finished
// Program. numChecked and first become the Program's header fields.
//
// A trailing HALT is always appended after the caller's emitted code,
// so a thread that advances past a terminal MATCH (MATCH never kills a
// thread on its own) lands on a valid instruction instead of running
// off the end of Body. Label positions are unaffected since they were
// already fixed when Label was called.
func (a *Assembler) Assemble(numChecked uint32, first *byteset.Bitmap) (*Program, error) {
	for _, fx := range a.fixups {
		target, ok := a.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("vm: undefined label %q", fx.label)
		}
		if target > maxOffset24 {
			return nil, &DisassembleError{Err: ErrOffsetOverflow, PC: fx.pc}
		}
		a.body[fx.pc].Offset = uint32(target)
	}
	body := append([]Instruction(nil), a.body...)
	body = append(body, MakeHalt())
	return &Program{
		NumChecked: numChecked,
		First:      first,
		Body:       body,
	}, nil
}

// Labels returns the assembler's label-name-by-PC map, suitable for
// passing to Program.Disassemble.
func (a *Assembler) Labels() map[uint64]string {
	out := make(map[uint64]string, len(a.public))
	for pc, name := range a.public {
		out[pc] = name
	}
	return out
}
