package seccomp

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/bpf"
)

// Program is a compiled classic BPF seccomp filter for the native
// architecture. It carries no reference to the rules it was built from.
type Program struct {
	raw          []bpf.RawInstruction
	instructions []bpf.Instruction
}

func newProgram(raw []bpf.RawInstruction) (*Program, error) {
	if len(raw) == 0 {
		return nil, errors.New("seccomp: empty filter program")
	}
	if len(raw) > maxInstructions {
		return nil, fmt.Errorf("%w (%d > %d)", ErrProgramTooLarge, len(raw), maxInstructions)
	}
	insns, ok := bpf.Disassemble(raw)
	if !ok {
		return nil, errors.New("seccomp: could not disassemble entire BPF filter")
	}
	return &Program{raw: raw, instructions: insns}, nil
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int {
	return len(p.raw)
}

// Instructions returns a copy of the disassembled program.
func (p *Program) Instructions() []bpf.Instruction {
	insns := make([]bpf.Instruction, len(p.instructions))
	copy(insns, p.instructions)
	return insns
}

func (p *Program) String() string {
	var b strings.Builder
	for idx, insn := range p.instructions {
		fmt.Fprintf(&b, "[%4.1d] %s\n", idx, insn)
	}
	return b.String()
}

// TsyncError is returned by Load when another thread of the process could
// not be synchronized to the new filter.
type TsyncError struct {
	Tid int
}

func (e *TsyncError) Error() string {
	return fmt.Sprintf("seccomp: thread %d could not be synchronized to the filter", e.Tid)
}
