package fuel

import "encoding/binary"

// Message is a value-plus-payload unit sent to an address on the
// execution layer. It is spent at most once, by a transaction that
// carries it as a MessageInput.
type Message struct {
	Sender    Address `json:"sender"`
	Recipient Address `json:"recipient"`
	Nonce     uint64  `json:"nonce"`
	Owner     Address `json:"owner"`
	Amount    uint64  `json:"amount"`
	Data      []byte  `json:"data"`
}

// ComputeMessageID hashes the message fields in the order the
// network does: sender, recipient, nonce, owner, amount, data.
// Integers are 8 bytes big-endian.
func ComputeMessageID(sender, recipient Address, nonce uint64, owner Address, amount uint64, data []byte) MessageID {
	var n, a [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	binary.BigEndian.PutUint64(a[:], amount)
	return Hash(sender[:], recipient[:], n[:], owner[:], a[:], data)
}

func (m *Message) ID() MessageID {
	return ComputeMessageID(m.Sender, m.Recipient, m.Nonce, m.Owner, m.Amount, m.Data)
}

// PredicateInput returns an input spending m, guarded by predicate.
func (m *Message) PredicateInput(predicate, predicateData []byte) *MessageInput {
	return &MessageInput{
		Sender:        m.Sender,
		Recipient:     m.Recipient,
		Nonce:         m.Nonce,
		Owner:         m.Owner,
		Amount:        m.Amount,
		Data:          append([]byte(nil), m.Data...),
		Predicate:     append([]byte(nil), predicate...),
		PredicateData: append([]byte(nil), predicateData...),
	}
}
