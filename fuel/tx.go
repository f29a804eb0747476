package fuel

import "github.com/chain/txvm/errors"

// Structural limits enforced when decoding and validating transactions.
const (
	MaxInputs        = 255
	MaxOutputs       = 255
	MaxWitnesses     = 255
	MaxScriptLength  = 1 << 20
	MaxDataLength    = 1 << 20
	MaxPredicateSize = 1 << 20
)

var (
	ErrMalformed = errors.New("malformed transaction encoding")

	// ErrInvalidTransaction is the failure a node reports when it
	// refuses to include a transaction: a predicate rejected it or it
	// is structurally unsound. Resubmitting it unchanged cannot succeed.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Transaction is a script transaction: a script program run against
// ordered inputs and outputs.
type Transaction struct {
	GasPrice   uint64   `json:"gas_price"`
	GasLimit   uint64   `json:"gas_limit"`
	Maturity   uint64   `json:"maturity"`
	Script     []byte   `json:"script"`
	ScriptData []byte   `json:"script_data"`
	Inputs     []Input  `json:"-"`
	Outputs    []Output `json:"-"`
	Witnesses  [][]byte `json:"witnesses"`
}

// ID returns the transaction id: the hash of the canonical encoding
// with witnesses omitted and runtime-filled output amounts zeroed,
// so that neither signing nor execution changes it.
func (tx *Transaction) ID() TxID {
	return Hash(encodeTx(tx, false))
}

// Bytes returns the canonical encoding of tx, witnesses included.
func (tx *Transaction) Bytes() []byte {
	return encodeTx(tx, true)
}

// AddWitness appends w and returns its index.
func (tx *Transaction) AddWitness(w []byte) uint8 {
	tx.Witnesses = append(tx.Witnesses, w)
	return uint8(len(tx.Witnesses) - 1)
}

// MaxFee is the most tx can be charged: its gas limit at its gas price.
// It saturates rather than overflows.
func (tx *Transaction) MaxFee() uint64 {
	if tx.GasPrice != 0 && tx.GasLimit > ^uint64(0)/tx.GasPrice {
		return ^uint64(0)
	}
	return tx.GasPrice * tx.GasLimit
}

// Invalidf returns an error whose root is ErrInvalidTransaction.
func Invalidf(format string, args ...interface{}) error {
	return errors.WithDetailf(ErrInvalidTransaction, format, args...)
}

// IsInvalid reports whether err is a node's refusal of a transaction.
func IsInvalid(err error) bool {
	return err != nil && errors.Root(err) == ErrInvalidTransaction
}
