package asm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/chain/txvm/errors"
)

// InstructionSize is the encoded width of every instruction, in bytes.
const InstructionSize = 4

// Instruction is a single decoded machine instruction.
// Only the registers and immediate that the opcode's Shape calls for
// are meaningful; the rest must be zero.
type Instruction struct {
	Op         Opcode
	A, B, C, D Reg
	Imm        uint32
}

// Check validates the operands of i against its opcode:
// registers in range, immediate in range,
// unused operands zero,
// and no writes to reserved registers.
func (i Instruction) Check() error {
	if !i.Op.Valid() {
		return errors.WithDetailf(ErrUnknownOpcode, "opcode 0x%02x", uint8(i.Op))
	}
	shape := i.Op.Shape()
	regs := i.regs()
	n := shape.numRegs()
	for j, r := range regs {
		if j >= n {
			if r != 0 {
				return errors.WithDetailf(ErrOperands, "%s takes %d register(s), got extra operand %s", i.Op, n, r)
			}
			continue
		}
		if r >= NumRegs {
			return errors.WithDetailf(ErrRange, "%s: register %d", i.Op, uint8(r))
		}
	}
	if !shape.hasImm() && i.Imm != 0 {
		return errors.WithDetailf(ErrOperands, "%s takes no immediate", i.Op)
	}
	if max := i.Op.MaxImm(); shape.hasImm() && i.Imm > max {
		return errors.WithDetailf(ErrRange, "%s: immediate %d exceeds %d", i.Op, i.Imm, max)
	}
	if i.Op.WritesA() && i.A.Reserved() {
		return errors.WithDetailf(ErrReservedRegister, "%s writes %s", i.Op, i.A)
	}
	return nil
}

func (i Instruction) regs() [4]Reg {
	return [4]Reg{i.A, i.B, i.C, i.D}
}

// Encode returns the big-endian machine encoding of i.
// Out-of-range operands are an error, never truncated.
func (i Instruction) Encode() ([InstructionSize]byte, error) {
	var out [InstructionSize]byte
	if err := i.Check(); err != nil {
		return out, err
	}
	w := uint32(i.Op) << 24
	switch i.Op.Shape() {
	case ShapeR, ShapeRR, ShapeRRR, ShapeRRRR:
		w |= uint32(i.A)<<18 | uint32(i.B)<<12 | uint32(i.C)<<6 | uint32(i.D)
	case ShapeRRI:
		w |= uint32(i.A)<<18 | uint32(i.B)<<12 | i.Imm
	case ShapeRI:
		w |= uint32(i.A)<<18 | i.Imm
	case ShapeI:
		w |= i.Imm
	}
	binary.BigEndian.PutUint32(out[:], w)
	return out, nil
}

// Decode parses one instruction from the first InstructionSize bytes of b.
func Decode(b []byte) (Instruction, error) {
	if len(b) < InstructionSize {
		return Instruction{}, ErrShortProgram
	}
	w := binary.BigEndian.Uint32(b)
	op := Opcode(w >> 24)
	if !op.Valid() {
		return Instruction{}, errors.WithDetailf(ErrUnknownOpcode, "opcode 0x%02x", uint8(op))
	}
	var (
		i  = Instruction{Op: op}
		ra = Reg(w >> 18 & 0x3f)
		rb = Reg(w >> 12 & 0x3f)
		rc = Reg(w >> 6 & 0x3f)
		rd = Reg(w & 0x3f)
	)
	switch op.Shape() {
	case ShapeR:
		i.A = ra
	case ShapeRR:
		i.A, i.B = ra, rb
	case ShapeRRR:
		i.A, i.B, i.C = ra, rb, rc
	case ShapeRRRR:
		i.A, i.B, i.C, i.D = ra, rb, rc, rd
	case ShapeRRI:
		i.A, i.B, i.Imm = ra, rb, w&MaxImm12
	case ShapeRI:
		i.A, i.Imm = ra, w&MaxImm18
	case ShapeI:
		i.Imm = w & MaxImm24
	}
	return i, nil
}

func (i Instruction) String() string {
	var parts []string
	parts = append(parts, i.Op.String())
	regs := i.regs()
	for _, r := range regs[:i.Op.Shape().numRegs()] {
		parts = append(parts, r.String())
	}
	if i.Op.Shape().hasImm() {
		parts = append(parts, fmt.Sprintf("%d", i.Imm))
	}
	return strings.Join(parts, " ")
}
