package vm

import (
	"context"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// Result is the outcome of running a transaction's script.
type Result struct {
	Reverted bool
	Val      uint64 // return value, or revert code
	GasUsed  uint64
	Receipts []fuel.Receipt

	// Balances are the free balances left after execution,
	// excluding the reserved maximum fee.
	// They are meaningful only if the script did not revert.
	Balances map[fuel.AssetID]uint64

	// Err is the fault or failed call behind a revert, if any.
	Err error
}

// FreeBalances returns the amounts tx's inputs make available to its
// script, per asset, with the maximum fee already set aside from the
// base asset. It reports false if the base asset cannot cover the fee.
func FreeBalances(tx *fuel.Transaction) (map[fuel.AssetID]uint64, bool) {
	bal := make(map[fuel.AssetID]uint64)
	for _, in := range tx.Inputs {
		switch in := in.(type) {
		case *fuel.CoinInput:
			bal[in.AssetID] += in.Amount
		case *fuel.MessageInput:
			bal[fuel.BaseAsset] += in.Amount
		}
	}
	fee := tx.MaxFee()
	if bal[fuel.BaseAsset] < fee {
		return bal, false
	}
	bal[fuel.BaseAsset] -= fee
	return bal, true
}

// RunScript executes tx's script with gas limit tx.GasLimit, sending
// contract calls to host. Any fault reverts the script; RunScript
// never returns a nil Result.
func RunScript(ctx context.Context, tx *fuel.Transaction, host Host) (res *Result) {
	res = new(Result)
	var vm *virtualMachine
	defer func() {
		if panErr := recover(); panErr != nil {
			res.Err = errors.WithDetailf(ErrUnexpected, "%v", panErr)
		}
		if res.Err != nil && !res.Reverted {
			res.Reverted = true
			res.Val = CodeFault
		}
		if vm != nil {
			res.GasUsed = vm.gasUsed(tx.GasLimit)
			res.Receipts = vm.receipts
		}
		typ := fuel.ReceiptReturn
		result := fuel.ResultSuccess
		if res.Reverted {
			typ = fuel.ReceiptRevert
			result = fuel.ResultRevert
			res.Balances = nil
		}
		res.Receipts = append(res.Receipts,
			fuel.Receipt{Type: typ, Val: res.Val},
			fuel.Receipt{Type: fuel.ReceiptScriptResult, Result: result, GasUsed: res.GasUsed},
		)
	}()

	balances, ok := FreeBalances(tx)
	if !ok {
		res.Err = errors.WithDetailf(ErrNotEnoughBalance, "inputs cannot cover max fee %d", tx.MaxFee())
		return res
	}

	vm, err := newVM(tx, tx.GasLimit)
	if err != nil {
		res.Err = err
		return res
	}
	vm.ctx = ctx
	vm.host = host
	vm.balances = balances
	vm.contracts = make(map[fuel.ContractID]bool)
	for _, in := range tx.Inputs {
		if c, ok := in.(*fuel.ContractInput); ok {
			vm.contracts[c.ContractID] = true
		}
	}

	err = vm.load(tx.Script, vm.layout.script)
	if err == nil {
		err = vm.run()
	}
	if err != nil {
		res.Err = err
		return res
	}
	res.Reverted = vm.reverted
	res.Val = vm.val
	res.Err = vm.callErr
	res.Balances = vm.balances
	return res
}
