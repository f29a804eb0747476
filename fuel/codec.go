package fuel

import (
	"encoding/binary"

	"github.com/chain/txvm/errors"
)

// The canonical encoding writes every integer as an 8-byte big-endian
// word and every byte string as a length word followed by the bytes,
// zero-padded to a word boundary.

type encoder struct {
	buf []byte
}

func (e *encoder) word(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) b32(b Bytes32) {
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) padded(b []byte) {
	e.buf = append(e.buf, b...)
	for i := len(b); i%8 != 0; i++ {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) bytes(b []byte) {
	e.word(uint64(len(b)))
	e.padded(b)
}

func encodeTx(tx *Transaction, witnesses bool) []byte {
	var e encoder
	e.word(tx.GasPrice)
	e.word(tx.GasLimit)
	e.word(tx.Maturity)
	e.word(uint64(len(tx.Inputs)))
	e.word(uint64(len(tx.Outputs)))
	e.bytes(tx.Script)
	e.bytes(tx.ScriptData)
	for _, in := range tx.Inputs {
		encodeInput(&e, in)
	}
	for _, out := range tx.Outputs {
		encodeOutput(&e, out, witnesses)
	}
	if witnesses {
		e.word(uint64(len(tx.Witnesses)))
		for _, w := range tx.Witnesses {
			e.bytes(w)
		}
	}
	return e.buf
}

func encodeInput(e *encoder, in Input) {
	e.word(uint64(in.Type()))
	switch in := in.(type) {
	case *CoinInput:
		e.b32(in.UTXOID.TxID)
		e.word(uint64(in.UTXOID.OutputIndex))
		e.b32(in.Owner)
		e.word(in.Amount)
		e.b32(in.AssetID)
		e.word(uint64(in.WitnessIndex))
		e.bytes(in.Predicate)
		e.bytes(in.PredicateData)
	case *ContractInput:
		e.b32(in.ContractID)
	case *MessageInput:
		e.b32(in.Sender)
		e.b32(in.Recipient)
		e.word(in.Nonce)
		e.b32(in.Owner)
		e.word(in.Amount)
		e.word(uint64(in.WitnessIndex))
		e.bytes(in.Data)
		e.bytes(in.Predicate)
		e.bytes(in.PredicateData)
	}
}

// When full is false, amounts the node fills in at execution time
// are encoded as zero.
func encodeOutput(e *encoder, out Output, full bool) {
	e.word(uint64(out.Type()))
	switch out := out.(type) {
	case *CoinOutput:
		e.b32(out.To)
		e.word(out.Amount)
		e.b32(out.AssetID)
	case *ContractOutput:
		e.word(uint64(out.InputIndex))
	case *MessageOutput:
		e.b32(out.Recipient)
		e.word(out.Amount)
	case *ChangeOutput:
		e.b32(out.To)
		if full {
			e.word(out.Amount)
		} else {
			e.word(0)
		}
		e.b32(out.AssetID)
	case *VariableOutput:
		if full {
			e.b32(out.To)
			e.word(out.Amount)
			e.b32(out.AssetID)
		} else {
			e.b32(Bytes32{})
			e.word(0)
			e.b32(Bytes32{})
		}
	}
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = errors.WithDetailf(ErrMalformed, format, args...)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.buf) {
		d.fail("need %d bytes, have %d", n, len(d.buf))
		return nil
	}
	out := d.buf[:n]
	d.buf = d.buf[n:]
	return out
}

func (d *decoder) word() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (d *decoder) small(max uint64, what string) uint64 {
	v := d.word()
	if v > max {
		d.fail("%s %d exceeds %d", what, v, max)
		return 0
	}
	return v
}

func (d *decoder) b32() (out Bytes32) {
	copy(out[:], d.take(32))
	return out
}

func (d *decoder) bytes(max int, what string) []byte {
	n := int(d.small(uint64(max), what+" length"))
	b := d.take(n)
	if n%8 != 0 {
		d.take(8 - n%8)
	}
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// DecodeTransaction parses the canonical encoding produced by
// Transaction.Bytes.
func DecodeTransaction(b []byte) (*Transaction, error) {
	d := &decoder{buf: b}
	tx := &Transaction{
		GasPrice: d.word(),
		GasLimit: d.word(),
		Maturity: d.word(),
	}
	nIn := int(d.small(MaxInputs, "input count"))
	nOut := int(d.small(MaxOutputs, "output count"))
	tx.Script = d.bytes(MaxScriptLength, "script")
	tx.ScriptData = d.bytes(MaxDataLength, "script data")
	for i := 0; i < nIn && d.err == nil; i++ {
		tx.Inputs = append(tx.Inputs, decodeInput(d))
	}
	for i := 0; i < nOut && d.err == nil; i++ {
		tx.Outputs = append(tx.Outputs, decodeOutput(d))
	}
	nWit := int(d.small(MaxWitnesses, "witness count"))
	for i := 0; i < nWit && d.err == nil; i++ {
		tx.Witnesses = append(tx.Witnesses, d.bytes(MaxDataLength, "witness"))
	}
	if d.err == nil && len(d.buf) > 0 {
		d.fail("%d trailing bytes", len(d.buf))
	}
	if d.err != nil {
		return nil, d.err
	}
	return tx, nil
}

func decodeInput(d *decoder) Input {
	switch t := InputType(d.word()); t {
	case InputCoin:
		in := new(CoinInput)
		in.UTXOID.TxID = d.b32()
		in.UTXOID.OutputIndex = uint8(d.small(MaxOutputs, "output index"))
		in.Owner = d.b32()
		in.Amount = d.word()
		in.AssetID = d.b32()
		in.WitnessIndex = uint8(d.small(MaxWitnesses, "witness index"))
		in.Predicate = d.bytes(MaxPredicateSize, "predicate")
		in.PredicateData = d.bytes(MaxDataLength, "predicate data")
		return in
	case InputContract:
		return &ContractInput{ContractID: d.b32()}
	case InputMessage:
		in := new(MessageInput)
		in.Sender = d.b32()
		in.Recipient = d.b32()
		in.Nonce = d.word()
		in.Owner = d.b32()
		in.Amount = d.word()
		in.WitnessIndex = uint8(d.small(MaxWitnesses, "witness index"))
		in.Data = d.bytes(MaxDataLength, "message data")
		in.Predicate = d.bytes(MaxPredicateSize, "predicate")
		in.PredicateData = d.bytes(MaxDataLength, "predicate data")
		return in
	default:
		d.fail("unknown input type %d", t)
		return nil
	}
}

func decodeOutput(d *decoder) Output {
	switch t := OutputType(d.word()); t {
	case OutputCoin:
		return &CoinOutput{To: d.b32(), Amount: d.word(), AssetID: d.b32()}
	case OutputContract:
		return &ContractOutput{InputIndex: uint8(d.small(MaxInputs, "input index"))}
	case OutputMessage:
		return &MessageOutput{Recipient: d.b32(), Amount: d.word()}
	case OutputChange:
		return &ChangeOutput{To: d.b32(), Amount: d.word(), AssetID: d.b32()}
	case OutputVariable:
		return &VariableOutput{To: d.b32(), Amount: d.word(), AssetID: d.b32()}
	default:
		d.fail("unknown output type %d", t)
		return nil
	}
}
