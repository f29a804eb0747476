package asm

import "fmt"

// Opcode identifies a machine instruction.
type Opcode uint8

// The subset of the instruction set used by the relay programs.
const (
	ADD  Opcode = 0x10
	EQ   Opcode = 0x13
	GT   Opcode = 0x15
	LT   Opcode = 0x16
	MOVE Opcode = 0x1a
	SUB  Opcode = 0x20
	RET  Opcode = 0x24
	MCP  Opcode = 0x28
	MEQ  Opcode = 0x29
	CALL Opcode = 0x2d
	RVRT Opcode = 0x36
	S256 Opcode = 0x40
	NOOP Opcode = 0x47
	ADDI Opcode = 0x50
	SUBI Opcode = 0x59
	JNEI Opcode = 0x5b
	LW   Opcode = 0x5d
	SW   Opcode = 0x5f
	MCPI Opcode = 0x60
	GTF  Opcode = 0x61
	MOVI Opcode = 0x72
	JNZI Opcode = 0x73
	JI   Opcode = 0x90
	CFEI Opcode = 0x91
)

// Shape is the operand layout of an instruction.
type Shape uint8

// Operand layouts. Registers are 6 bits wide; immediates take whatever
// bits remain after the opcode and the registers.
const (
	ShapeNone Shape = iota // op
	ShapeR                 // op ra
	ShapeRR                // op ra rb
	ShapeRRR               // op ra rb rc
	ShapeRRRR              // op ra rb rc rd
	ShapeRRI               // op ra rb imm12
	ShapeRI                // op ra imm18
	ShapeI                 // op imm24
)

// Immediate limits per shape.
const (
	MaxImm12 = 1<<12 - 1
	MaxImm18 = 1<<18 - 1
	MaxImm24 = 1<<24 - 1
)

type opInfo struct {
	name    string
	shape   Shape
	writesA bool // ra is a destination register
}

var ops [256]opInfo

func init() {
	for op, info := range map[Opcode]opInfo{
		ADD:  {"add", ShapeRRR, true},
		EQ:   {"eq", ShapeRRR, true},
		GT:   {"gt", ShapeRRR, true},
		LT:   {"lt", ShapeRRR, true},
		MOVE: {"move", ShapeRR, true},
		SUB:  {"sub", ShapeRRR, true},
		RET:  {"ret", ShapeR, false},
		MCP:  {"mcp", ShapeRRR, false},
		MEQ:  {"meq", ShapeRRRR, true},
		CALL: {"call", ShapeRRRR, false},
		RVRT: {"rvrt", ShapeR, false},
		S256: {"s256", ShapeRRR, false},
		NOOP: {"noop", ShapeNone, false},
		ADDI: {"addi", ShapeRRI, true},
		SUBI: {"subi", ShapeRRI, true},
		JNEI: {"jnei", ShapeRRI, false},
		LW:   {"lw", ShapeRRI, true},
		SW:   {"sw", ShapeRRI, false},
		MCPI: {"mcpi", ShapeRRI, false},
		GTF:  {"gtf", ShapeRRI, true},
		MOVI: {"movi", ShapeRI, true},
		JNZI: {"jnzi", ShapeRI, false},
		JI:   {"ji", ShapeI, false},
		CFEI: {"cfei", ShapeI, false},
	} {
		ops[op] = info
	}
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return ops[op].name != ""
}

// Shape returns the operand layout of op.
func (op Opcode) Shape() Shape {
	return ops[op].shape
}

// WritesA reports whether op stores its result in register ra.
func (op Opcode) WritesA() bool {
	return ops[op].writesA
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(0x%02x)", uint8(op))
	}
	return ops[op].name
}

// MaxImm returns the largest immediate op can encode,
// or 0 if op takes no immediate.
func (op Opcode) MaxImm() uint32 {
	switch op.Shape() {
	case ShapeRRI:
		return MaxImm12
	case ShapeRI:
		return MaxImm18
	case ShapeI:
		return MaxImm24
	}
	return 0
}

func (s Shape) numRegs() int {
	switch s {
	case ShapeR, ShapeRI:
		return 1
	case ShapeRR, ShapeRRI:
		return 2
	case ShapeRRR:
		return 3
	case ShapeRRRR:
		return 4
	}
	return 0
}

func (s Shape) hasImm() bool {
	return s == ShapeRRI || s == ShapeRI || s == ShapeI
}
