package fuel

import (
	"github.com/chain/txvm/errors"
	"github.com/golang/protobuf/proto"
)

// RawTx is the wire envelope for submitting a transaction to a node.
type RawTx struct {
	Tx                   []byte   `protobuf:"bytes,1,opt,name=tx,proto3" json:"tx,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *RawTx) Reset()         { *m = RawTx{} }
func (m *RawTx) String() string { return proto.CompactTextString(m) }
func (*RawTx) ProtoMessage()    {}

// MarshalRawTx wraps tx in a RawTx and serializes it.
func MarshalRawTx(tx *Transaction) ([]byte, error) {
	return proto.Marshal(&RawTx{Tx: tx.Bytes()})
}

// UnmarshalRawTx is the inverse of MarshalRawTx.
func UnmarshalRawTx(b []byte) (*Transaction, error) {
	var raw RawTx
	if err := proto.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling raw tx")
	}
	tx, err := DecodeTransaction(raw.Tx)
	return tx, errors.Wrap(err, "decoding tx")
}
