package vm

import (
	"context"
	"fmt"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// Call is a contract call issued by a script. The call frame in VM
// memory holds the contract id, then the selector word, then the
// parameter word.
type Call struct {
	Contract fuel.ContractID
	AssetID  fuel.AssetID
	Amount   uint64
	Selector uint64
	Param    uint64
	Gas      uint64
}

// Host executes contract calls on behalf of a script.
// A non-nil error reverts the whole script.
type Host interface {
	Call(ctx context.Context, call *Call) (uint64, error)
}

// RevertError is a contract revert with a code. Hosts may return it
// to control the revert code the script reports.
type RevertError struct {
	Code uint64
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("contract reverted with code %#x", e.Code)
}

// Revert codes for reverts that did not come from an RVRT instruction.
const (
	CodeFault      uint64 = 0xffffffffffff0000
	CodeCallFailed uint64 = 0xffffffffffff0001
)

// callFrameSize is the number of bytes CALL reads from its frame.
const callFrameSize = 32 + 8 + 8

func (vm *virtualMachine) call(frame, amount, assetPtr, gas uint64) error {
	if vm.predicate || vm.host == nil {
		return errors.WithDetail(ErrContext, "contract call from a predicate")
	}
	if err := vm.checkRange(frame, callFrameSize); err != nil {
		return err
	}
	id, _ := vm.read32(frame)
	selector, _ := vm.readWord(frame + 32)
	param, _ := vm.readWord(frame + 40)
	asset, err := vm.read32(assetPtr)
	if err != nil {
		return err
	}
	if !vm.contracts[id] {
		return errors.WithDetailf(ErrContractNotInInputs, "contract %s", id)
	}
	if vm.balances[asset] < amount {
		return errors.WithDetailf(ErrNotEnoughBalance, "want %d of %s, have %d", amount, asset, vm.balances[asset])
	}
	if err := vm.charge(GasCall); err != nil {
		return err
	}
	if gas > vm.reg[regCGas] {
		gas = vm.reg[regCGas]
	}

	c := &Call{
		Contract: id,
		AssetID:  asset,
		Amount:   amount,
		Selector: selector,
		Param:    param,
		Gas:      gas,
	}
	vm.receipts = append(vm.receipts, fuel.Receipt{
		Type:     fuel.ReceiptCall,
		To:       id,
		Amount:   amount,
		AssetID:  asset,
		Selector: selector,
		Param:    param,
		Gas:      gas,
	})
	ret, err := vm.host.Call(vm.ctx, c)
	if err != nil {
		code := CodeCallFailed
		if rerr, ok := errors.Root(err).(*RevertError); ok {
			code = rerr.Code
		}
		vm.halted = true
		vm.reverted = true
		vm.val = code
		vm.callErr = errors.Wrapf(err, "calling %s", id)
		return nil
	}
	vm.balances[asset] -= amount
	vm.reg[regRet] = ret
	vm.receipts = append(vm.receipts, fuel.Receipt{Type: fuel.ReceiptReturn, To: id, Val: ret})
	return nil
}
