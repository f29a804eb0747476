package contractmsg

import (
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// MinGasLimit is the gas a relay transaction gets per message it forwards.
const MinGasLimit = 1_200_000

var (
	ErrShortData        = errors.New("message data shorter than a contract id")
	ErrContractMismatch = errors.New("contract input does not match message data")
	ErrNoFeeInput       = errors.New("no fee-paying coin input")
	ErrBadInput         = errors.New("bad input")
)

// TargetContract returns the contract a message is addressed to:
// the first 32 bytes of its data.
func TargetContract(data []byte) (fuel.ContractID, error) {
	if len(data) < 32 {
		return fuel.ContractID{}, errors.WithDetailf(ErrShortData, "%d bytes", len(data))
	}
	id, _ := fuel.Bytes32FromSlice(data[:32])
	return id, nil
}

// RelayTxRequest is the input to BuildRelayTx.
type RelayTxRequest struct {
	Message  *fuel.MessageInput
	Contract *fuel.ContractInput

	// Fee inputs pay for gas. The first must be a coin; change in the
	// base asset goes to its owner.
	Fee []fuel.Input

	ExtraInputs  []fuel.Input
	ExtraOutputs []fuel.Output

	Script   []byte
	GasPrice uint64
	Maturity uint64
}

// BuildRelayTx assembles the transaction relaying req.Message to
// req.Contract. Inputs are ordered message, contract, fee inputs,
// extra inputs. Outputs are ordered:
//
//	contract output for input 1
//	contract outputs for any extra contract inputs
//	base-asset change to the owner of the first fee coin
//	change for any other asset among the inputs, to its first owner
//	extra outputs
//	one variable output
//
// The gas limit is MinGasLimit for each message input carrying data.
func BuildRelayTx(req *RelayTxRequest) (*fuel.Transaction, error) {
	if req.Message == nil {
		return nil, errors.WithDetail(ErrBadInput, "no message input")
	}
	if req.Contract == nil {
		return nil, errors.WithDetail(ErrBadInput, "no contract input")
	}
	target, err := TargetContract(req.Message.Data)
	if err != nil {
		return nil, err
	}
	if req.Contract.ContractID != target {
		return nil, errors.WithDetailf(ErrContractMismatch, "message targets %s, contract input is %s", target, req.Contract.ContractID)
	}
	if len(req.Fee) == 0 {
		return nil, ErrNoFeeInput
	}
	feeCoin, ok := req.Fee[0].(*fuel.CoinInput)
	if !ok {
		return nil, errors.WithDetailf(ErrNoFeeInput, "first fee input is a %s input", req.Fee[0].Type())
	}

	tx := &fuel.Transaction{
		GasPrice: req.GasPrice,
		Maturity: req.Maturity,
		Script:   append([]byte(nil), req.Script...),
	}
	tx.Inputs = append(tx.Inputs, req.Message, req.Contract)
	tx.Inputs = append(tx.Inputs, req.Fee...)
	tx.Inputs = append(tx.Inputs, req.ExtraInputs...)
	if len(tx.Inputs) > fuel.MaxInputs {
		return nil, errors.WithDetailf(ErrBadInput, "%d inputs", len(tx.Inputs))
	}

	tx.Outputs = append(tx.Outputs, &fuel.ContractOutput{InputIndex: 1})

	var (
		messages  uint64
		changeTo  = make(map[fuel.AssetID]fuel.Address)
		assets    []fuel.AssetID
		hasChange = make(map[fuel.AssetID]bool)
	)
	for _, out := range req.ExtraOutputs {
		if c, ok := out.(*fuel.ChangeOutput); ok {
			hasChange[c.AssetID] = true
		}
	}
	changeTo[fuel.BaseAsset] = feeCoin.Owner
	assets = append(assets, fuel.BaseAsset)

	for i, in := range tx.Inputs {
		switch in := in.(type) {
		case *fuel.MessageInput:
			if len(in.Data) > 0 {
				messages++
			}
		case *fuel.ContractInput:
			if i > 1 {
				tx.Outputs = append(tx.Outputs, &fuel.ContractOutput{InputIndex: uint8(i)})
			}
		case *fuel.CoinInput:
			if _, ok := changeTo[in.AssetID]; !ok {
				changeTo[in.AssetID] = in.Owner
				assets = append(assets, in.AssetID)
			}
		default:
			return nil, errors.WithDetailf(ErrBadInput, "input %d has unknown type %T", i, in)
		}
	}
	for _, asset := range assets {
		if !hasChange[asset] {
			tx.Outputs = append(tx.Outputs, &fuel.ChangeOutput{To: changeTo[asset], AssetID: asset})
		}
	}
	tx.Outputs = append(tx.Outputs, req.ExtraOutputs...)
	tx.Outputs = append(tx.Outputs, &fuel.VariableOutput{})
	if len(tx.Outputs) > fuel.MaxOutputs {
		return nil, errors.WithDetailf(ErrBadInput, "%d outputs", len(tx.Outputs))
	}

	if messages == 0 {
		messages = 1
	}
	tx.GasLimit = MinGasLimit * messages
	return tx, nil
}
