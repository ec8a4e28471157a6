package vm

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownOpcode   = errors.New("invalid instruction: unknown opcode")
	ErrTruncated       = errors.New("invalid instruction stream: truncated record")
	ErrOffsetOverflow  = errors.New("offset exceeds 24-bit field")
	ErrBadJumpTable    = errors.New("JUMP_TABLE is not followed by 256 slots")
	ErrBadBitVector    = errors.New("BIT_VECTOR is not followed by its 32-byte payload")
	ErrIndexRange      = errors.New("index out of range")
	ErrReentrantSearch = errors.New("search called reentrantly on the same VM")
)

// DisassembleError is returned when a Program's body cannot be decoded or
// walked, typically meaning the bytecode is corrupt or hostile.
type DisassembleError struct {
	Err error
	PC  uint64
}

func (e *DisassembleError) Error() string {
	return fmt.Sprintf("github.com/lightgrep/lgvm/vm: disassemble error @ PC %d: %v", e.PC, e.Err)
}

func (e *DisassembleError) Unwrap() error { return e.Err }

// RuntimeError is returned when a program violates a semantic contract
// the VM's execution loop itself never checks (the loop just kills the
// offending thread silently). Program.Validate constructs one to surface
// such a violation to a caller that wants to reject a malformed program
// before running it.
type RuntimeError struct {
	Err error
	PC  uint64
	Op  OpCode
}

func (e *RuntimeError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "github.com/lightgrep/lgvm/vm: runtime error @ PC %d: %s: %v", e.PC, e.Op, e.Err)
	return buf.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }
