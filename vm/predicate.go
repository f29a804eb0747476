package vm

import (
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// VerifyPredicate evaluates the predicate guarding tx's input at
// index. The predicate sees the whole transaction but cannot write
// outside its own stack or call contracts. It accepts by returning 1.
//
// When ok is false, err says why: ErrPredicateRevert or
// ErrPredicateFalse for a program that rejected the transaction, or a
// fault.
func VerifyPredicate(tx *fuel.Transaction, index int) (ok bool, err error) {
	defer func() {
		if panErr := recover(); panErr != nil {
			ok = false
			err = errors.WithDetailf(ErrUnexpected, "%v", panErr)
		}
	}()
	return verifyPredicate(tx, index)
}

func verifyPredicate(tx *fuel.Transaction, index int) (bool, error) {
	if index < 0 || index >= len(tx.Inputs) {
		return false, errors.WithDetailf(ErrInputIndex, "input %d of %d", index, len(tx.Inputs))
	}
	in := tx.Inputs[index]
	code := fuel.InputPredicate(in)
	if len(code) == 0 {
		return false, errors.WithDetailf(ErrNoPredicate, "%s input %d", in.Type(), index)
	}

	var owner fuel.Address
	switch in := in.(type) {
	case *fuel.CoinInput:
		owner = in.Owner
	case *fuel.MessageInput:
		owner = in.Recipient
	}
	if root := fuel.CodeRoot(code); root != owner {
		return false, errors.WithDetailf(ErrPredicateOwner, "root %s, owner %s", root, owner)
	}

	vm, err := newVM(tx, MaxPredicateGas)
	if err != nil {
		return false, err
	}
	vm.predicate = true
	err = vm.load(code, vm.layout.end)
	if err != nil {
		return false, err
	}
	err = vm.run()
	if err != nil {
		return false, errors.Wrapf(err, "predicate of input %d", index)
	}
	if vm.reverted {
		return false, errors.WithDetailf(ErrPredicateRevert, "input %d, code %#x", index, vm.val)
	}
	if vm.val != 1 {
		return false, errors.WithDetailf(ErrPredicateFalse, "input %d returned %d", index, vm.val)
	}
	return true, nil
}
