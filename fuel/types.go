// Package fuel holds the transaction data model of the contract
// execution layer: identifiers, messages, tagged input and output
// variants, transactions, receipts, and their canonical encoding.
package fuel

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chain/txvm/errors"
)

// Bytes32 is a 32-byte identifier: an address, contract id, asset id,
// message id or transaction id.
type Bytes32 [32]byte

type (
	Address    = Bytes32
	ContractID = Bytes32
	AssetID    = Bytes32
	MessageID  = Bytes32
	TxID       = Bytes32
)

// BaseAsset is the asset fees are paid in and messages carry.
var BaseAsset AssetID

var ErrBadHex = errors.New("bad hex identifier")

// Bytes32FromSlice copies b into a Bytes32. It reports false if b
// is not exactly 32 bytes.
func Bytes32FromSlice(b []byte) (Bytes32, bool) {
	var out Bytes32
	if len(b) != len(out) {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

// ParseBytes32 parses a 64-digit hex string, with or without a 0x prefix.
func ParseBytes32(s string) (Bytes32, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Bytes32{}, errors.Wrap(ErrBadHex, err.Error())
	}
	out, ok := Bytes32FromSlice(b)
	if !ok {
		return out, errors.WithDetailf(ErrBadHex, "got %d bytes, want 32", len(b))
	}
	return out, nil
}

func (b Bytes32) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

func (b Bytes32) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bytes32) UnmarshalText(text []byte) error {
	v, err := ParseBytes32(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Hash returns the SHA-256 of the concatenation of parts.
func Hash(parts ...[]byte) Bytes32 {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Bytes32
	h.Sum(out[:0])
	return out
}

// UTXOID names a coin by the transaction and output that created it.
type UTXOID struct {
	TxID        TxID  `json:"tx_id"`
	OutputIndex uint8 `json:"output_index"`
}
