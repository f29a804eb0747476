package asm

import "fmt"

// Reg is a register identifier. There are NumRegs registers;
// the first FirstWritable of them are reserved by the machine.
type Reg uint8

// Reserved registers.
const (
	RegZero Reg = 0x00 // always 0
	RegOne  Reg = 0x01 // always 1
	RegOF   Reg = 0x02 // overflow
	RegPC   Reg = 0x03 // program counter
	RegSSP  Reg = 0x04 // stack start pointer
	RegSP   Reg = 0x05 // stack pointer
	RegFP   Reg = 0x06 // frame pointer
	RegHP   Reg = 0x07 // heap pointer
	RegErr  Reg = 0x08 // error code
	RegGGas Reg = 0x09 // global gas
	RegCGas Reg = 0x0a // context gas
	RegBal  Reg = 0x0b // forwarded balance
	RegIS   Reg = 0x0c // instruction start
	RegRet  Reg = 0x0d // return value
	RegRetL Reg = 0x0e // return length
	RegFlag Reg = 0x0f // flags
)

const (
	// NumRegs is the size of the register file.
	NumRegs = 64

	// FirstWritable is the lowest register a program may write.
	FirstWritable Reg = 0x10
)

var regNames = [...]string{
	"zero", "one", "of", "pc", "ssp", "sp", "fp", "hp",
	"err", "ggas", "cgas", "bal", "is", "ret", "retl", "flag",
}

// Reserved reports whether r is one of the machine's reserved registers.
func (r Reg) Reserved() bool {
	return r < FirstWritable
}

func (r Reg) String() string {
	if r.Reserved() {
		return "$" + regNames[r]
	}
	return fmt.Sprintf("$r%d", uint8(r))
}
