package fuel

// InputType is the tag of an Input variant, as seen by programs
// through the input-type transaction field.
type InputType uint8

const (
	InputCoin     InputType = 0
	InputContract InputType = 1
	InputMessage  InputType = 2
)

func (t InputType) String() string {
	switch t {
	case InputCoin:
		return "coin"
	case InputContract:
		return "contract"
	case InputMessage:
		return "message"
	}
	return "unknown"
}

// Input is one of *CoinInput, *ContractInput or *MessageInput.
type Input interface {
	Type() InputType
	isInput()
}

// CoinInput spends a coin. A coin owned by a key is authorized by the
// witness at WitnessIndex; a coin owned by a predicate carries the
// predicate's bytecode instead.
type CoinInput struct {
	UTXOID        UTXOID  `json:"utxo_id"`
	Owner         Address `json:"owner"`
	Amount        uint64  `json:"amount"`
	AssetID       AssetID `json:"asset_id"`
	WitnessIndex  uint8   `json:"witness_index"`
	Predicate     []byte  `json:"predicate,omitempty"`
	PredicateData []byte  `json:"predicate_data,omitempty"`
}

// ContractInput makes a contract's current state available to the
// transaction. It must be paired with a ContractOutput naming its index.
type ContractInput struct {
	ContractID ContractID `json:"contract_id"`
}

// MessageInput spends a Message. The message id is not stored; it is
// recomputed from the fields.
type MessageInput struct {
	Sender        Address `json:"sender"`
	Recipient     Address `json:"recipient"`
	Nonce         uint64  `json:"nonce"`
	Owner         Address `json:"owner"`
	Amount        uint64  `json:"amount"`
	Data          []byte  `json:"data"`
	WitnessIndex  uint8   `json:"witness_index"`
	Predicate     []byte  `json:"predicate,omitempty"`
	PredicateData []byte  `json:"predicate_data,omitempty"`
}

func (*CoinInput) Type() InputType     { return InputCoin }
func (*ContractInput) Type() InputType { return InputContract }
func (*MessageInput) Type() InputType  { return InputMessage }

func (*CoinInput) isInput()     {}
func (*ContractInput) isInput() {}
func (*MessageInput) isInput()  {}

func (in *MessageInput) MessageID() MessageID {
	return ComputeMessageID(in.Sender, in.Recipient, in.Nonce, in.Owner, in.Amount, in.Data)
}

// Message returns the message in spends.
func (in *MessageInput) Message() Message {
	return Message{
		Sender:    in.Sender,
		Recipient: in.Recipient,
		Nonce:     in.Nonce,
		Owner:     in.Owner,
		Amount:    in.Amount,
		Data:      in.Data,
	}
}

// InputPredicate returns the predicate bytecode guarding in, if any.
func InputPredicate(in Input) []byte {
	switch in := in.(type) {
	case *CoinInput:
		return in.Predicate
	case *MessageInput:
		return in.Predicate
	}
	return nil
}

// Coin is an unspent coin as reported by a node.
type Coin struct {
	UTXOID  UTXOID  `json:"utxo_id"`
	Owner   Address `json:"owner"`
	Amount  uint64  `json:"amount"`
	AssetID AssetID `json:"asset_id"`
}

// Input returns an input spending c, authorized by the witness at
// witnessIndex.
func (c *Coin) Input(witnessIndex uint8) *CoinInput {
	return &CoinInput{
		UTXOID:       c.UTXOID,
		Owner:        c.Owner,
		Amount:       c.Amount,
		AssetID:      c.AssetID,
		WitnessIndex: witnessIndex,
	}
}
