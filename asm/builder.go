package asm

import (
	"encoding/binary"

	"github.com/chain/txvm/errors"
)

// Label names an instruction position. Allocate one with NewLabel,
// use it in jumps, and place it with SetLabel before Build.
type Label int

// Const names an entry in the program's constant block.
type Const int

type refKind uint8

const (
	refNone  refKind = iota
	refLabel         // imm is the target's instruction index
	refByte          // imm is the constant's byte offset from $is
	refWord          // imm is the constant's word offset from $is
)

type pending struct {
	inst Instruction
	kind refKind
	ref  int
}

// Builder assembles a program from instructions that may refer to
// labels and constants whose final positions are unknown until Build.
//
// The first error encountered is sticky: later calls are no-ops and
// Build reports it.
type Builder struct {
	insts []pending
	data  []byte

	// Maps a label to its instruction index, or -1 while unplaced.
	labels []int

	// Maps a constant to its byte offset within the data block.
	consts []int

	err error
}

func NewBuilder() *Builder {
	return new(Builder)
}

// Err returns the first error recorded by b, if any.
func (b *Builder) Err() error {
	return b.err
}

// NewLabel allocates a label that can be used as a jump target.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// SetLabel places l at the current position, so that a jump to l
// executes whatever instruction is added next.
func (b *Builder) SetLabel(l Label) *Builder {
	if b.err != nil {
		return b
	}
	if int(l) < 0 || int(l) >= len(b.labels) {
		b.err = errors.WithDetailf(ErrUnresolvedLabel, "label %d was not allocated by this builder", l)
		return b
	}
	b.labels[l] = len(b.insts)
	return b
}

// Data appends raw bytes to the constant block.
func (b *Builder) Data(p []byte) Const {
	b.consts = append(b.consts, len(b.data))
	b.data = append(b.data, p...)
	return Const(len(b.consts) - 1)
}

// Word appends a big-endian word to the constant block,
// zero-padding first as needed so that it is word aligned.
func (b *Builder) Word(v uint64) Const {
	for len(b.data)%8 != 0 {
		b.data = append(b.data, 0)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return b.Data(buf[:])
}

func (b *Builder) add(inst Instruction, kind refKind, ref int) *Builder {
	if b.err != nil {
		return b
	}
	if kind == refNone {
		if err := inst.Check(); err != nil {
			b.err = errors.Wrapf(err, "instruction %d", len(b.insts))
			return b
		}
	} else if inst.Op.WritesA() && inst.A.Reserved() {
		b.err = errors.WithDetailf(ErrReservedRegister, "instruction %d: %s writes %s", len(b.insts), inst.Op, inst.A)
		return b
	}
	b.insts = append(b.insts, pending{inst: inst, kind: kind, ref: ref})
	return b
}

// Op appends an arbitrary, fully-resolved instruction.
func (b *Builder) Op(inst Instruction) *Builder {
	return b.add(inst, refNone, 0)
}

func (b *Builder) Add(dst, x, y Reg) *Builder {
	return b.Op(Instruction{Op: ADD, A: dst, B: x, C: y})
}

func (b *Builder) Sub(dst, x, y Reg) *Builder {
	return b.Op(Instruction{Op: SUB, A: dst, B: x, C: y})
}

func (b *Builder) Eq(dst, x, y Reg) *Builder {
	return b.Op(Instruction{Op: EQ, A: dst, B: x, C: y})
}

func (b *Builder) Gt(dst, x, y Reg) *Builder {
	return b.Op(Instruction{Op: GT, A: dst, B: x, C: y})
}

func (b *Builder) Lt(dst, x, y Reg) *Builder {
	return b.Op(Instruction{Op: LT, A: dst, B: x, C: y})
}

func (b *Builder) Move(dst, src Reg) *Builder {
	return b.Op(Instruction{Op: MOVE, A: dst, B: src})
}

func (b *Builder) Movi(dst Reg, v uint32) *Builder {
	return b.Op(Instruction{Op: MOVI, A: dst, Imm: v})
}

func (b *Builder) Addi(dst, src Reg, v uint32) *Builder {
	return b.Op(Instruction{Op: ADDI, A: dst, B: src, Imm: v})
}

func (b *Builder) Subi(dst, src Reg, v uint32) *Builder {
	return b.Op(Instruction{Op: SUBI, A: dst, B: src, Imm: v})
}

// Cfei extends the current call frame's stack by n bytes.
func (b *Builder) Cfei(n uint32) *Builder {
	return b.Op(Instruction{Op: CFEI, Imm: n})
}

// Gtf loads transaction field f, indexed by idx, into dst.
func (b *Builder) Gtf(dst, idx Reg, f uint32) *Builder {
	return b.Op(Instruction{Op: GTF, A: dst, B: idx, Imm: f})
}

// S256 writes the SHA-256 of memory [src, src+n) to memory at dst.
func (b *Builder) S256(dst, src, n Reg) *Builder {
	return b.Op(Instruction{Op: S256, A: dst, B: src, C: n})
}

// Meq sets dst to 1 if memory [x, x+n) equals [y, y+n), otherwise 0.
func (b *Builder) Meq(dst, x, y, n Reg) *Builder {
	return b.Op(Instruction{Op: MEQ, A: dst, B: x, C: y, D: n})
}

func (b *Builder) Mcp(dst, src, n Reg) *Builder {
	return b.Op(Instruction{Op: MCP, A: dst, B: src, C: n})
}

func (b *Builder) Mcpi(dst, src Reg, n uint32) *Builder {
	return b.Op(Instruction{Op: MCPI, A: dst, B: src, Imm: n})
}

// Lw loads the word at address base + 8*off.
func (b *Builder) Lw(dst, base Reg, off uint32) *Builder {
	return b.Op(Instruction{Op: LW, A: dst, B: base, Imm: off})
}

// Sw stores src at address base + 8*off.
func (b *Builder) Sw(base, src Reg, off uint32) *Builder {
	return b.Op(Instruction{Op: SW, A: base, B: src, Imm: off})
}

// Call invokes the contract whose call frame starts at params,
// forwarding amount of the asset at assetID and gas units of gas.
func (b *Builder) Call(params, amount, assetID, gas Reg) *Builder {
	return b.Op(Instruction{Op: CALL, A: params, B: amount, C: assetID, D: gas})
}

func (b *Builder) Ret(r Reg) *Builder {
	return b.Op(Instruction{Op: RET, A: r})
}

func (b *Builder) Rvrt(r Reg) *Builder {
	return b.Op(Instruction{Op: RVRT, A: r})
}

func (b *Builder) Noop() *Builder {
	return b.Op(Instruction{Op: NOOP})
}

// Jnei jumps to l if x != y.
func (b *Builder) Jnei(x, y Reg, l Label) *Builder {
	return b.add(Instruction{Op: JNEI, A: x, B: y}, refLabel, int(l))
}

// Jnzi jumps to l if x != 0.
func (b *Builder) Jnzi(x Reg, l Label) *Builder {
	return b.add(Instruction{Op: JNZI, A: x}, refLabel, int(l))
}

// Ji jumps to l unconditionally.
func (b *Builder) Ji(l Label) *Builder {
	return b.add(Instruction{Op: JI}, refLabel, int(l))
}

// AddiConst sets dst to the address of constant c.
func (b *Builder) AddiConst(dst Reg, c Const) *Builder {
	return b.add(Instruction{Op: ADDI, A: dst, B: RegIS}, refByte, int(c))
}

// LwConst loads the word-aligned constant c into dst.
func (b *Builder) LwConst(dst Reg, c Const) *Builder {
	return b.add(Instruction{Op: LW, A: dst, B: RegIS}, refWord, int(c))
}

// Build resolves labels and constant offsets and returns the finished
// program. The constant block is placed directly after the code; if any
// constant is loaded by word offset and the code has an odd number of
// instructions, a NOOP is appended so that the block is word aligned.
func (b *Builder) Build() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}

	n := len(b.insts)
	pad := false
	for _, p := range b.insts {
		if p.kind == refWord && n%2 == 1 {
			pad = true
			break
		}
	}
	codeLen := n
	if pad {
		codeLen++
	}
	dataStart := codeLen * InstructionSize

	prog := &Program{
		Instructions: make([]Instruction, 0, codeLen),
		Data:         append([]byte(nil), b.data...),
	}
	for i, p := range b.insts {
		inst := p.inst
		switch p.kind {
		case refLabel:
			if p.ref < 0 || p.ref >= len(b.labels) || b.labels[p.ref] < 0 {
				return nil, errors.WithDetailf(ErrUnresolvedLabel, "instruction %d: label %d", i, p.ref)
			}
			inst.Imm = uint32(b.labels[p.ref])
		case refByte, refWord:
			if p.ref < 0 || p.ref >= len(b.consts) {
				return nil, errors.WithDetailf(ErrUnknownConst, "instruction %d: constant %d", i, p.ref)
			}
			off := dataStart + b.consts[p.ref]
			if p.kind == refWord {
				if off%8 != 0 {
					return nil, errors.WithDetailf(ErrUnalignedConst, "instruction %d: constant %d at byte %d", i, p.ref, off)
				}
				off /= 8
			}
			inst.Imm = uint32(off)
		}
		if err := inst.Check(); err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		prog.Instructions = append(prog.Instructions, inst)
	}
	if pad {
		prog.Instructions = append(prog.Instructions, Instruction{Op: NOOP})
	}
	return prog, nil
}
