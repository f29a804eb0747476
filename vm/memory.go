package vm

import (
	"encoding/binary"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// MemSize is the size of VM memory in bytes.
const MemSize = 1 << 20

// TxStart is the address of the serialized transaction area.
// The script is loaded here, followed by the per-input data that
// GTF pointer fields refer to.
const TxStart = 64

// txLayout records where the transaction's fields were loaded.
type txLayout struct {
	script uint64
	data   []uint64 // message data, per input
	id     []uint64 // message id or contract id, per input
	end    uint64
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// loadTx copies the addressable parts of tx into memory starting at
// TxStart and returns their layout.
func (vm *virtualMachine) loadTx(tx *fuel.Transaction) error {
	l := txLayout{
		data: make([]uint64, len(tx.Inputs)),
		id:   make([]uint64, len(tx.Inputs)),
	}
	p := uint64(TxStart)
	put := func(b []byte) (uint64, error) {
		addr := p
		if addr+uint64(len(b)) > MemSize {
			return 0, errors.WithDetailf(ErrMemoryOverflow, "transaction needs more than %d bytes", MemSize)
		}
		copy(vm.mem[addr:], b)
		p = align8(addr + uint64(len(b)))
		return addr, nil
	}

	var err error
	if l.script, err = put(tx.Script); err != nil {
		return err
	}
	for i, in := range tx.Inputs {
		switch in := in.(type) {
		case *fuel.MessageInput:
			id := in.MessageID()
			if l.id[i], err = put(id[:]); err != nil {
				return err
			}
			if l.data[i], err = put(in.Data); err != nil {
				return err
			}
		case *fuel.ContractInput:
			if l.id[i], err = put(in.ContractID[:]); err != nil {
				return err
			}
		}
	}
	l.end = p
	vm.layout = l
	return nil
}

// load places code at the first word boundary at or after addr and
// points $is and $pc at it. The stack starts after both the code and
// the transaction area.
func (vm *virtualMachine) load(code []byte, addr uint64) error {
	addr = align8(addr)
	end := addr + uint64(len(code))
	if end > MemSize {
		return errors.WithDetailf(ErrMemoryOverflow, "%d bytes of code at %d", len(code), addr)
	}
	copy(vm.mem[addr:], code)
	vm.progStart, vm.progEnd = addr, end
	vm.reg[regIS] = addr
	vm.reg[regPC] = addr
	stack := align8(end)
	if stack < vm.layout.end {
		stack = vm.layout.end
	}
	vm.reg[regSSP] = stack
	vm.reg[regSP] = stack
	vm.reg[regHP] = MemSize
	return nil
}

func (vm *virtualMachine) checkRange(addr, n uint64) error {
	if addr > MemSize || n > MemSize-addr {
		return errors.WithDetailf(ErrMemoryAccess, "[%d, %d+%d)", addr, addr, n)
	}
	return nil
}

func (vm *virtualMachine) read(addr, n uint64) ([]byte, error) {
	if err := vm.checkRange(addr, n); err != nil {
		return nil, err
	}
	return vm.mem[addr : addr+n], nil
}

// Writes are confined to the stack, [$ssp, $sp), and the heap, [$hp, MemSize).
func (vm *virtualMachine) write(addr uint64, b []byte) error {
	n := uint64(len(b))
	if err := vm.checkRange(addr, n); err != nil {
		return err
	}
	inStack := addr >= vm.reg[regSSP] && addr+n <= vm.reg[regSP]
	inHeap := addr >= vm.reg[regHP]
	if !inStack && !inHeap {
		return errors.WithDetailf(ErrMemoryWrite, "[%d, %d+%d)", addr, addr, n)
	}
	copy(vm.mem[addr:], b)
	return nil
}

func (vm *virtualMachine) readWord(addr uint64) (uint64, error) {
	b, err := vm.read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (vm *virtualMachine) writeWord(addr, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return vm.write(addr, b[:])
}

func (vm *virtualMachine) read32(addr uint64) (out fuel.Bytes32, err error) {
	b, err := vm.read(addr, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
