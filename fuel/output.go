package fuel

// OutputType is the tag of an Output variant.
type OutputType uint8

const (
	OutputCoin     OutputType = 0
	OutputContract OutputType = 1
	OutputMessage  OutputType = 2
	OutputChange   OutputType = 3
	OutputVariable OutputType = 4
)

func (t OutputType) String() string {
	switch t {
	case OutputCoin:
		return "coin"
	case OutputContract:
		return "contract"
	case OutputMessage:
		return "message"
	case OutputChange:
		return "change"
	case OutputVariable:
		return "variable"
	}
	return "unknown"
}

// Output is one of *CoinOutput, *ContractOutput, *MessageOutput,
// *ChangeOutput or *VariableOutput.
type Output interface {
	Type() OutputType
	isOutput()
}

type CoinOutput struct {
	To      Address `json:"to"`
	Amount  uint64  `json:"amount"`
	AssetID AssetID `json:"asset_id"`
}

// ContractOutput carries the new state of the contract whose input is
// at InputIndex.
type ContractOutput struct {
	InputIndex uint8 `json:"input_index"`
}

type MessageOutput struct {
	Recipient Address `json:"recipient"`
	Amount    uint64  `json:"amount"`
}

// ChangeOutput returns whatever is left of AssetID after execution
// and fees to To. Amount is filled in by the node.
type ChangeOutput struct {
	To      Address `json:"to"`
	Amount  uint64  `json:"amount"`
	AssetID AssetID `json:"asset_id"`
}

// VariableOutput is a slot a contract call may fill at execution time.
type VariableOutput struct {
	To      Address `json:"to"`
	Amount  uint64  `json:"amount"`
	AssetID AssetID `json:"asset_id"`
}

func (*CoinOutput) Type() OutputType     { return OutputCoin }
func (*ContractOutput) Type() OutputType { return OutputContract }
func (*MessageOutput) Type() OutputType  { return OutputMessage }
func (*ChangeOutput) Type() OutputType   { return OutputChange }
func (*VariableOutput) Type() OutputType { return OutputVariable }

func (*CoinOutput) isOutput()     {}
func (*ContractOutput) isOutput() {}
func (*MessageOutput) isOutput()  {}
func (*ChangeOutput) isOutput()   {}
func (*VariableOutput) isOutput() {}
