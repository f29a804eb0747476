package asm

import (
	"bytes"
	"fmt"

	"github.com/chain/txvm/errors"
)

// Program is assembled machine code followed by its constant block.
type Program struct {
	Instructions []Instruction
	Data         []byte
}

// CodeLen returns the length in bytes of the code section.
func (p *Program) CodeLen() int {
	return len(p.Instructions) * InstructionSize
}

// Bytes returns the program's bytecode: the encoded instructions
// followed by the constant block.
func (p *Program) Bytes() ([]byte, error) {
	out := make([]byte, 0, p.CodeLen()+len(p.Data))
	for i, inst := range p.Instructions {
		enc, err := inst.Encode()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding instruction %d", i)
		}
		out = append(out, enc[:]...)
	}
	return append(out, p.Data...), nil
}

// MustBytes is like Bytes but panics on error.
// Programs returned by Builder.Build always encode.
func (p *Program) MustBytes() []byte {
	b, err := p.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

// String returns a disassembly listing of p.
func (p *Program) String() string {
	var buf bytes.Buffer
	for i, inst := range p.Instructions {
		fmt.Fprintf(&buf, "%4d  %s\n", i, inst)
	}
	if len(p.Data) > 0 {
		fmt.Fprintf(&buf, "data  %x\n", p.Data)
	}
	return buf.String()
}

// Disassemble decodes the first n instructions of bytecode.
// Everything after them is returned as the constant block.
func Disassemble(bytecode []byte, n int) (*Program, error) {
	if n < 0 || n*InstructionSize > len(bytecode) {
		return nil, errors.WithDetailf(ErrShortProgram, "want %d instructions, have %d bytes", n, len(bytecode))
	}
	p := &Program{Instructions: make([]Instruction, 0, n)}
	for i := 0; i < n; i++ {
		inst, err := Decode(bytecode[i*InstructionSize:])
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		p.Instructions = append(p.Instructions, inst)
	}
	p.Data = append([]byte(nil), bytecode[n*InstructionSize:]...)
	return p, nil
}
