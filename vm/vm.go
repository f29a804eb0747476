// Package vm evaluates programs for the contract execution layer:
// predicates, with read-only access to the transaction they guard,
// and scripts, which may call contracts through a Host.
package vm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"math/bits"

	"github.com/FuelLabs/bridge-message-predicates/asm"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

const (
	regZero = asm.RegZero
	regOne  = asm.RegOne
	regOF   = asm.RegOF
	regPC   = asm.RegPC
	regSSP  = asm.RegSSP
	regSP   = asm.RegSP
	regHP   = asm.RegHP
	regGGas = asm.RegGGas
	regCGas = asm.RegCGas
	regIS   = asm.RegIS
	regRet  = asm.RegRet
)

// Gas schedule.
const (
	GasBase    = 1   // every instruction
	GasPerWord = 1   // per 8 bytes hashed, compared or copied
	GasCall    = 100 // contract call overhead
)

// MaxPredicateGas bounds the execution of a single predicate.
const MaxPredicateGas = 1_000_000

// TraceOut - if non-nil - will receive trace output during
// execution.
var TraceOut io.Writer

type virtualMachine struct {
	mem [MemSize]byte
	reg [asm.NumRegs]uint64

	tx     *fuel.Transaction
	layout txLayout

	progStart, progEnd uint64

	// predicate context: no contract calls
	predicate bool

	ctx       context.Context
	host      Host
	contracts map[fuel.ContractID]bool
	balances  map[fuel.AssetID]uint64
	receipts  []fuel.Receipt

	halted   bool
	reverted bool
	val      uint64 // return value or revert code
	callErr  error
}

func newVM(tx *fuel.Transaction, gas uint64) (*virtualMachine, error) {
	vm := &virtualMachine{tx: tx}
	vm.reg[regOne] = 1
	vm.reg[regGGas] = gas
	vm.reg[regCGas] = gas
	err := vm.loadTx(tx)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

func (vm *virtualMachine) gasUsed(limit uint64) uint64 {
	return limit - vm.reg[regGGas]
}

func (vm *virtualMachine) run() error {
	for !vm.halted {
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *virtualMachine) charge(n uint64) error {
	if n > vm.reg[regCGas] {
		vm.reg[regGGas] -= vm.reg[regCGas]
		vm.reg[regCGas] = 0
		return ErrOutOfGas
	}
	vm.reg[regCGas] -= n
	vm.reg[regGGas] -= n
	return nil
}

func (vm *virtualMachine) chargeBytes(n uint64) error {
	return vm.charge((n + 7) / 8 * GasPerWord)
}

func (vm *virtualMachine) step() error {
	pc := vm.reg[regPC]
	if pc < vm.progStart || pc+asm.InstructionSize > vm.progEnd || (pc-vm.progStart)%asm.InstructionSize != 0 {
		return errors.WithDetailf(ErrPCOutOfBounds, "pc %d, program [%d, %d)", pc, vm.progStart, vm.progEnd)
	}
	inst, err := asm.Decode(vm.mem[pc : pc+asm.InstructionSize])
	if err != nil {
		return errors.Wrapf(err, "at pc %d", pc)
	}
	if inst.Op.WritesA() && inst.A.Reserved() {
		return errors.WithDetailf(ErrReservedRegister, "%s at pc %d", inst, pc)
	}
	if err := vm.charge(GasBase); err != nil {
		return err
	}

	if TraceOut != nil {
		fmt.Fprintf(TraceOut, "vm pc %d gas %d %s\n", (pc-vm.reg[regIS])/asm.InstructionSize, vm.reg[regCGas], inst)
	}

	vm.reg[regPC] = pc + asm.InstructionSize
	err = vm.exec(inst)
	if err != nil {
		return errors.Wrapf(err, "%s at pc %d", inst, pc)
	}
	return nil
}

func (vm *virtualMachine) set(r asm.Reg, v uint64) {
	vm.reg[r] = v
}

func (vm *virtualMachine) jump(imm uint32) {
	vm.reg[regPC] = vm.reg[regIS] + uint64(imm)*asm.InstructionSize
}

func (vm *virtualMachine) exec(inst asm.Instruction) error {
	a, b, c, d := vm.reg[inst.A], vm.reg[inst.B], vm.reg[inst.C], vm.reg[inst.D]
	imm := uint64(inst.Imm)

	switch inst.Op {
	case asm.NOOP:

	case asm.ADD, asm.ADDI:
		y := c
		if inst.Op == asm.ADDI {
			y = imm
		}
		sum, carry := bits.Add64(b, y, 0)
		vm.set(inst.A, sum)
		vm.reg[regOF] = carry

	case asm.SUB, asm.SUBI:
		y := c
		if inst.Op == asm.SUBI {
			y = imm
		}
		diff, borrow := bits.Sub64(b, y, 0)
		vm.set(inst.A, diff)
		vm.reg[regOF] = borrow

	case asm.EQ:
		vm.set(inst.A, boolWord(b == c))
	case asm.GT:
		vm.set(inst.A, boolWord(b > c))
	case asm.LT:
		vm.set(inst.A, boolWord(b < c))

	case asm.MOVE:
		vm.set(inst.A, b)
	case asm.MOVI:
		vm.set(inst.A, imm)

	case asm.CFEI:
		if imm > vm.reg[regHP]-vm.reg[regSP] {
			return errors.WithDetailf(ErrMemoryOverflow, "stack of %d bytes cannot grow by %d", vm.reg[regSP]-vm.reg[regSSP], imm)
		}
		vm.reg[regSP] += imm

	case asm.LW:
		v, err := vm.readWord(b + imm*8)
		if err != nil {
			return err
		}
		vm.set(inst.A, v)
	case asm.SW:
		return vm.writeWord(a+imm*8, b)

	case asm.MCP, asm.MCPI:
		n := c
		if inst.Op == asm.MCPI {
			n = imm
		}
		if err := vm.chargeBytes(n); err != nil {
			return err
		}
		src, err := vm.read(b, n)
		if err != nil {
			return err
		}
		return vm.write(a, append([]byte(nil), src...))

	case asm.MEQ:
		if err := vm.chargeBytes(d); err != nil {
			return err
		}
		x, err := vm.read(b, d)
		if err != nil {
			return err
		}
		y, err := vm.read(c, d)
		if err != nil {
			return err
		}
		vm.set(inst.A, boolWord(bytes.Equal(x, y)))

	case asm.S256:
		if err := vm.chargeBytes(c); err != nil {
			return err
		}
		src, err := vm.read(b, c)
		if err != nil {
			return err
		}
		h := sha256.Sum256(src)
		return vm.write(a, h[:])

	case asm.GTF:
		v, err := vm.field(b, inst.Imm)
		if err != nil {
			return err
		}
		vm.set(inst.A, v)

	case asm.JNEI:
		if a != b {
			vm.jump(inst.Imm)
		}
	case asm.JNZI:
		if a != 0 {
			vm.jump(inst.Imm)
		}
	case asm.JI:
		vm.jump(inst.Imm)

	case asm.RET:
		vm.halted = true
		vm.val = a
		vm.reg[regRet] = a

	case asm.RVRT:
		vm.halted = true
		vm.reverted = true
		vm.val = a

	case asm.CALL:
		return vm.call(a, b, c, d)

	default:
		return errors.WithDetailf(asm.ErrUnknownOpcode, "%s", inst.Op)
	}
	return nil
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// field implements GTF.
func (vm *virtualMachine) field(index uint64, f uint32) (uint64, error) {
	tx := vm.tx
	switch f {
	case asm.GTFScriptLength:
		return uint64(len(tx.Script)), nil
	case asm.GTFInputsCount:
		return uint64(len(tx.Inputs)), nil
	case asm.GTFScript:
		return vm.layout.script, nil
	}

	if f < 0x100 || f >= 0x200 {
		return 0, errors.WithDetailf(ErrUnknownField, "0x%03x", f)
	}
	if index >= uint64(len(tx.Inputs)) {
		return 0, errors.WithDetailf(ErrInputIndex, "input %d of %d", index, len(tx.Inputs))
	}
	in := tx.Inputs[index]
	wrongType := func() error {
		return errors.WithDetailf(ErrInputType, "field 0x%03x on %s input %d", f, in.Type(), index)
	}

	switch f {
	case asm.GTFInputType:
		return uint64(in.Type()), nil
	case asm.GTFInputCoinAmount:
		coin, ok := in.(*fuel.CoinInput)
		if !ok {
			return 0, wrongType()
		}
		return coin.Amount, nil
	case asm.GTFInputContractID:
		if _, ok := in.(*fuel.ContractInput); !ok {
			return 0, wrongType()
		}
		return vm.layout.id[index], nil
	case asm.GTFInputMessageID, asm.GTFInputMessageAmount, asm.GTFInputMessageDataLength, asm.GTFInputMessageData:
		msg, ok := in.(*fuel.MessageInput)
		if !ok {
			return 0, wrongType()
		}
		switch f {
		case asm.GTFInputMessageID:
			return vm.layout.id[index], nil
		case asm.GTFInputMessageAmount:
			return msg.Amount, nil
		case asm.GTFInputMessageDataLength:
			return uint64(len(msg.Data)), nil
		default:
			return vm.layout.data[index], nil
		}
	}
	return 0, errors.WithDetailf(ErrUnknownField, "0x%03x", f)
}
