package asm

import "github.com/chain/txvm/errors"

var (
	ErrOperands         = errors.New("wrong operands for opcode")
	ErrRange            = errors.New("operand out of range")
	ErrReservedRegister = errors.New("write to reserved register")
	ErrShortProgram     = errors.New("unexpected end of program")
	ErrUnalignedConst   = errors.New("word-addressed constant is not word aligned")
	ErrUnknownConst     = errors.New("unknown constant")
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrUnresolvedLabel  = errors.New("unresolved label")
)
