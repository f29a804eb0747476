// Package devnode is an in-process development node. It keeps a
// ledger of coins, messages, and contracts, checks and executes
// transactions the way a network node would, and serves it all over
// HTTP.
//
// Every accepted transaction is committed at once in a block of its
// own.
package devnode

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/bobg/multichan"
	"github.com/pkg/errors"
)

// MaxGasPerTx is the largest gas limit the node accepts.
const MaxGasPerTx = 100_000_000

var ErrContractExists = errors.New("contract already deployed")

// Contract is a deployed message receiver. Each call credits the
// forwarded value to its balances, increments Counter, and stores the
// call parameter in Data1.
type Contract struct {
	ID fuel.ContractID `json:"id"`

	// Selector is the only selector the contract accepts.
	// Zero accepts any.
	Selector uint64 `json:"selector"`

	Balances map[fuel.AssetID]uint64 `json:"balances"`
	Counter  uint64                  `json:"counter"`
	Data1    uint64                  `json:"data1"`
}

// Balance returns the contract's balance of asset.
func (c *Contract) Balance(asset fuel.AssetID) uint64 {
	return c.Balances[asset]
}

func (c *Contract) clone() *Contract {
	cp := *c
	cp.Balances = make(map[fuel.AssetID]uint64, len(c.Balances))
	for k, v := range c.Balances {
		cp.Balances[k] = v
	}
	return &cp
}

// Block is the record of one committed transaction.
type Block struct {
	Height   uint64         `json:"height"`
	Time     time.Time      `json:"time"`
	TxID     fuel.TxID      `json:"tx_id"`
	Reverted bool           `json:"reverted"`
	Receipts []fuel.Receipt `json:"receipts"`
	Minted   []*fuel.Coin   `json:"minted,omitempty"`
}

// Node is the ledger and executor.
type Node struct {
	mu        sync.Mutex
	height    uint64
	nonce     uint64
	mints     uint64
	coins     map[fuel.UTXOID]*fuel.Coin
	messages  map[fuel.MessageID]*fuel.Message
	contracts map[fuel.ContractID]*Contract
	blocks    map[uint64]*Block
	w         *multichan.W
}

func New() *Node {
	return &Node{
		coins:     make(map[fuel.UTXOID]*fuel.Coin),
		messages:  make(map[fuel.MessageID]*fuel.Message),
		contracts: make(map[fuel.ContractID]*Contract),
		blocks:    make(map[uint64]*Block),
		w:         multichan.New((*Block)(nil)),
	}
}

// Close ends the block stream.
func (n *Node) Close() {
	n.w.Close()
}

// Block returns the block at height, if there is one yet.
func (n *Node) Block(height uint64) (*Block, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.blocks[height]
	return b, ok
}

// Blocks returns a reader of every block committed from now on.
func (n *Node) Blocks() *multichan.R {
	return n.w.Reader()
}

func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// SendMessage adds an unspent message from sender to recipient,
// owned by recipient, with the next nonce.
func (n *Node) SendMessage(sender, recipient fuel.Address, amount uint64, data []byte) *fuel.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonce++
	m := &fuel.Message{
		Sender:    sender,
		Recipient: recipient,
		Nonce:     n.nonce,
		Owner:     recipient,
		Amount:    amount,
		Data:      append([]byte(nil), data...),
	}
	n.messages[m.ID()] = m
	return m
}

// Mint creates a coin out of nothing.
func (n *Node) Mint(owner fuel.Address, asset fuel.AssetID, amount uint64) *fuel.Coin {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mints++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n.mints)
	c := &fuel.Coin{
		UTXOID:  fuel.UTXOID{TxID: fuel.Hash([]byte("mint"), buf[:])},
		Owner:   owner,
		Amount:  amount,
		AssetID: asset,
	}
	n.coins[c.UTXOID] = c
	return c
}

// Deploy creates a contract with empty state.
func (n *Node) Deploy(id fuel.ContractID, selector uint64) (*Contract, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.contracts[id]; ok {
		return nil, errors.Wrapf(ErrContractExists, "deploying %s", id)
	}
	c := &Contract{
		ID:       id,
		Selector: selector,
		Balances: make(map[fuel.AssetID]uint64),
	}
	n.contracts[id] = c
	return c.clone(), nil
}

// Contract returns a snapshot of a deployed contract's state.
func (n *Node) Contract(id fuel.ContractID) (*Contract, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[id]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

// Messages returns the unspent messages owned by owner, by nonce.
func (n *Node) Messages(_ context.Context, owner fuel.Address) ([]*fuel.Message, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*fuel.Message
	for _, m := range n.messages {
		if m.Owner == owner {
			cp := *m
			cp.Data = append([]byte(nil), m.Data...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out, nil
}

// Coins returns the unspent coins owned by owner, largest first.
func (n *Node) Coins(_ context.Context, owner fuel.Address) ([]*fuel.Coin, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*fuel.Coin
	for _, c := range n.coins {
		if c.Owner == owner {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		if c := bytes.Compare(out[i].UTXOID.TxID[:], out[j].UTXOID.TxID[:]); c != 0 {
			return c < 0
		}
		return out[i].UTXOID.OutputIndex < out[j].UTXOID.OutputIndex
	})
	return out, nil
}
