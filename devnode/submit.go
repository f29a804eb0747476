package devnode

import (
	"context"
	"log"
	"time"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/signer"
	"github.com/FuelLabs/bridge-message-predicates/vm"
)

// Revert codes of the node's contracts.
const (
	CodeNoContract  uint64 = 0xffffffffffff0010
	CodeBadSelector uint64 = 0xffffffffffff0011
	CodeOverflow    uint64 = 0xffffffffffff0012
)

// Submit checks tx against the ledger and, if it is valid, executes
// its script and commits the result in a new block. A reverted script
// still commits: the fee is charged and coins are spent, but messages
// carrying data stay unspent and contract state is unchanged.
//
// An invalid transaction yields an error whose root is
// fuel.ErrInvalidTransaction, and changes nothing.
func (n *Node) Submit(ctx context.Context, tx *fuel.Transaction) ([]fuel.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := tx.ID()
	if err := n.check(tx, id); err != nil {
		log.Printf("rejected tx %s: %s", id, err)
		return nil, err
	}

	h := &host{committed: n.contracts, dirty: make(map[fuel.ContractID]*Contract)}
	res := vm.RunScript(ctx, tx, h)

	block := n.apply(tx, id, res, h)
	log.Printf("committed block %d with tx %s (reverted: %v, gas used %d)", block.Height, id, block.Reverted, res.GasUsed)
	n.blocks[block.Height] = block
	n.w.Write(block)
	return res.Receipts, nil
}

// check applies the node's validity rules, in order: structure, input
// existence and ownership, output pairing, witnesses, predicates, fee.
func (n *Node) check(tx *fuel.Transaction, id fuel.TxID) error {
	switch {
	case len(tx.Inputs) == 0:
		return fuel.Invalidf("no inputs")
	case len(tx.Inputs) > fuel.MaxInputs:
		return fuel.Invalidf("%d inputs", len(tx.Inputs))
	case len(tx.Outputs) > fuel.MaxOutputs:
		return fuel.Invalidf("%d outputs", len(tx.Outputs))
	case len(tx.Witnesses) > fuel.MaxWitnesses:
		return fuel.Invalidf("%d witnesses", len(tx.Witnesses))
	case len(tx.Script) == 0:
		return fuel.Invalidf("empty script")
	case len(tx.Script) > fuel.MaxScriptLength:
		return fuel.Invalidf("script is %d bytes", len(tx.Script))
	case tx.GasLimit > MaxGasPerTx:
		return fuel.Invalidf("gas limit %d exceeds %d", tx.GasLimit, MaxGasPerTx)
	case tx.Maturity > n.height:
		return fuel.Invalidf("maturity %d is above height %d", tx.Maturity, n.height)
	}

	var (
		coins     = make(map[fuel.UTXOID]bool)
		messages  = make(map[fuel.MessageID]bool)
		contracts = make(map[fuel.ContractID]bool)
		assets    = map[fuel.AssetID]bool{fuel.BaseAsset: true}
		paired    = make(map[int]bool)
	)
	for i, in := range tx.Inputs {
		switch in := in.(type) {
		case *fuel.CoinInput:
			if coins[in.UTXOID] {
				return fuel.Invalidf("input %d spends coin %s:%d twice", i, in.UTXOID.TxID, in.UTXOID.OutputIndex)
			}
			coins[in.UTXOID] = true
			stored, ok := n.coins[in.UTXOID]
			if !ok {
				return fuel.Invalidf("input %d: coin %s:%d does not exist or is spent", i, in.UTXOID.TxID, in.UTXOID.OutputIndex)
			}
			if stored.Owner != in.Owner || stored.Amount != in.Amount || stored.AssetID != in.AssetID {
				return fuel.Invalidf("input %d does not match coin %s:%d", i, in.UTXOID.TxID, in.UTXOID.OutputIndex)
			}
			assets[in.AssetID] = true
			if len(in.Predicate) == 0 {
				if err := checkWitness(tx, id, i, in.WitnessIndex, in.Owner); err != nil {
					return err
				}
			}

		case *fuel.MessageInput:
			msgID := in.MessageID()
			if messages[msgID] {
				return fuel.Invalidf("input %d spends message %s twice", i, msgID)
			}
			messages[msgID] = true
			if _, ok := n.messages[msgID]; !ok {
				return fuel.Invalidf("input %d: message %s does not exist or is spent", i, msgID)
			}
			if len(in.Predicate) == 0 {
				if err := checkWitness(tx, id, i, in.WitnessIndex, in.Recipient); err != nil {
					return err
				}
			}

		case *fuel.ContractInput:
			if contracts[in.ContractID] {
				return fuel.Invalidf("input %d repeats contract %s", i, in.ContractID)
			}
			contracts[in.ContractID] = true

		default:
			return fuel.Invalidf("input %d has unknown type %T", i, in)
		}
	}

	changes := make(map[fuel.AssetID]bool)
	for i, out := range tx.Outputs {
		switch out := out.(type) {
		case *fuel.ContractOutput:
			idx := int(out.InputIndex)
			if idx >= len(tx.Inputs) || tx.Inputs[idx].Type() != fuel.InputContract {
				return fuel.Invalidf("output %d names input %d, which is not a contract", i, idx)
			}
			if paired[idx] {
				return fuel.Invalidf("output %d pairs contract input %d a second time", i, idx)
			}
			paired[idx] = true

		case *fuel.ChangeOutput:
			if changes[out.AssetID] {
				return fuel.Invalidf("output %d is a second change output for asset %s", i, out.AssetID)
			}
			if !assets[out.AssetID] {
				return fuel.Invalidf("output %d returns change of asset %s, which no input holds", i, out.AssetID)
			}
			changes[out.AssetID] = true

		case *fuel.CoinOutput, *fuel.VariableOutput:

		default:
			return fuel.Invalidf("output %d has unsupported type %s", i, out.Type())
		}
	}
	for i, in := range tx.Inputs {
		if in.Type() == fuel.InputContract && !paired[i] {
			return fuel.Invalidf("contract input %d has no contract output", i)
		}
	}

	for i, in := range tx.Inputs {
		if len(fuel.InputPredicate(in)) == 0 {
			continue
		}
		ok, err := vm.VerifyPredicate(tx, i)
		if err != nil {
			return fuel.Invalidf("predicate of input %d: %s", i, err)
		}
		if !ok {
			return fuel.Invalidf("predicate of input %d rejected the transaction", i)
		}
	}

	free, ok := vm.FreeBalances(tx)
	if !ok {
		return fuel.Invalidf("inputs cannot cover the max fee %d", tx.MaxFee())
	}
	for i, out := range tx.Outputs {
		if c, ok := out.(*fuel.CoinOutput); ok {
			if free[c.AssetID] < c.Amount {
				return fuel.Invalidf("output %d pays %d of asset %s, inputs leave %d", i, c.Amount, c.AssetID, free[c.AssetID])
			}
			free[c.AssetID] -= c.Amount
		}
	}
	return nil
}

func checkWitness(tx *fuel.Transaction, id fuel.TxID, input int, index uint8, owner fuel.Address) error {
	if int(index) >= len(tx.Witnesses) {
		return fuel.Invalidf("input %d names witness %d of %d", input, index, len(tx.Witnesses))
	}
	signedBy, ok := signer.Verify(tx.Witnesses[index], id)
	if !ok {
		return fuel.Invalidf("input %d: bad signature in witness %d", input, index)
	}
	if signedBy != owner {
		return fuel.Invalidf("input %d is owned by %s, witness %d is from %s", input, owner, index, signedBy)
	}
	return nil
}

// apply commits the effects of an executed transaction and returns its
// block. It must be called with n.mu held.
func (n *Node) apply(tx *fuel.Transaction, id fuel.TxID, res *vm.Result, h *host) *Block {
	fee := res.GasUsed * tx.GasPrice
	if tx.GasPrice != 0 && res.GasUsed > tx.MaxFee()/tx.GasPrice {
		fee = tx.MaxFee()
	}

	left := make(map[fuel.AssetID]uint64)
	if !res.Reverted {
		for asset, amount := range res.Balances {
			left[asset] = amount
		}
		// Return the unused part of the reserved fee.
		left[fuel.BaseAsset] += tx.MaxFee() - fee
		for cid, c := range h.dirty {
			n.contracts[cid] = c
		}
	} else {
		for _, in := range tx.Inputs {
			switch in := in.(type) {
			case *fuel.CoinInput:
				left[in.AssetID] += in.Amount
			case *fuel.MessageInput:
				if len(in.Data) == 0 {
					left[fuel.BaseAsset] += in.Amount
				}
			}
		}
		if left[fuel.BaseAsset] < fee {
			left[fuel.BaseAsset] = 0
		} else {
			left[fuel.BaseAsset] -= fee
		}
	}

	for _, in := range tx.Inputs {
		switch in := in.(type) {
		case *fuel.CoinInput:
			delete(n.coins, in.UTXOID)
		case *fuel.MessageInput:
			if !res.Reverted || len(in.Data) == 0 {
				delete(n.messages, in.MessageID())
			}
		}
	}

	n.height++
	block := &Block{
		Height:   n.height,
		Time:     time.Now(),
		TxID:     id,
		Reverted: res.Reverted,
		Receipts: res.Receipts,
	}

	mint := func(i int, to fuel.Address, asset fuel.AssetID, amount uint64) {
		if amount == 0 {
			return
		}
		c := &fuel.Coin{
			UTXOID:  fuel.UTXOID{TxID: id, OutputIndex: uint8(i)},
			Owner:   to,
			Amount:  amount,
			AssetID: asset,
		}
		n.coins[c.UTXOID] = c
		block.Minted = append(block.Minted, c)
	}
	for i, out := range tx.Outputs {
		if c, ok := out.(*fuel.CoinOutput); ok {
			amount := c.Amount
			if left[c.AssetID] < amount {
				amount = left[c.AssetID]
			}
			left[c.AssetID] -= amount
			mint(i, c.To, c.AssetID, amount)
		}
	}
	for i, out := range tx.Outputs {
		if c, ok := out.(*fuel.ChangeOutput); ok {
			mint(i, c.To, c.AssetID, left[c.AssetID])
			left[c.AssetID] = 0
		}
	}
	return block
}

// host runs contract calls against a copy-on-write view of the
// contracts. Nothing it changes is visible until apply commits dirty.
type host struct {
	committed map[fuel.ContractID]*Contract
	dirty     map[fuel.ContractID]*Contract
}

func (h *host) Call(_ context.Context, call *vm.Call) (uint64, error) {
	c, ok := h.dirty[call.Contract]
	if !ok {
		committed, ok := h.committed[call.Contract]
		if !ok {
			return 0, &vm.RevertError{Code: CodeNoContract}
		}
		c = committed.clone()
	}
	if c.Selector != 0 && c.Selector != call.Selector {
		return 0, &vm.RevertError{Code: CodeBadSelector}
	}
	bal := c.Balances[call.AssetID]
	if bal+call.Amount < bal {
		return 0, &vm.RevertError{Code: CodeOverflow}
	}
	c.Balances[call.AssetID] = bal + call.Amount
	c.Counter++
	c.Data1 = call.Param
	h.dirty[call.Contract] = c
	return c.Counter, nil
}
