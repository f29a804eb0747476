package devnode

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/davecgh/go-spew/spew"

	contractmsg "github.com/FuelLabs/bridge-message-predicates"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/signer"
)

const (
	testGasPrice = 1
	testFeeCoin  = 2 * contractmsg.MinGasLimit
)

var (
	testContract = fuel.Bytes32{0xc0, 0x4e}
	testSender   = fuel.Bytes32{0x5e}
	testSelector = uint64(contractmsg.FunctionSelector(contractmsg.DefaultSignature))
)

type fixture struct {
	node   *Node
	signer *signer.Signer
	art    *contractmsg.Artifacts
}

func newFixture(t *testing.T) *fixture {
	s, err := signer.Generate()
	if err != nil {
		t.Fatal(err)
	}
	n := New()
	if _, err := n.Deploy(testContract, testSelector); err != nil {
		t.Fatal(err)
	}
	return &fixture{node: n, signer: s, art: contractmsg.DefaultArtifacts}
}

// relayTx builds and signs the transaction relaying m with coin as its fee.
func (f *fixture) relayTx(t *testing.T, m *fuel.Message, coin *fuel.Coin) *fuel.Transaction {
	contract, err := contractmsg.TargetContract(m.Data)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := contractmsg.BuildRelayTx(&contractmsg.RelayTxRequest{
		Message:  m.PredicateInput(f.art.Predicate, nil),
		Contract: &fuel.ContractInput{ContractID: contract},
		Fee:      []fuel.Input{coin.Input(0)},
		Script:   f.art.Script,
		GasPrice: testGasPrice,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.signer.Sign(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	return tx
}

func gasUsed(receipts []fuel.Receipt) uint64 {
	for _, r := range receipts {
		if r.Type == fuel.ReceiptScriptResult {
			return r.GasUsed
		}
	}
	return 0
}

func TestSubmitForwards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := f.node.SendMessage(testSender, f.art.PredicateRoot, 100, append(testContract[:], 1, 2, 3))
	coin := f.node.Mint(f.signer.Address(), fuel.BaseAsset, testFeeCoin)

	r := f.node.Blocks()
	defer r.Dispose()

	tx := f.relayTx(t, m, coin)
	receipts, err := f.node.Submit(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if fuel.Reverted(receipts) {
		t.Fatalf("script reverted:\n%s", spew.Sdump(receipts))
	}
	calls := fuel.Calls(receipts)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].To != testContract || calls[0].Amount != 100 || calls[0].Selector != testSelector {
		t.Errorf("got call %s", spew.Sdump(calls[0]))
	}

	c, _ := f.node.Contract(testContract)
	if c.Balance(fuel.BaseAsset) != 100 || c.Counter != 1 {
		t.Errorf("got balance %d, counter %d; want 100, 1", c.Balance(fuel.BaseAsset), c.Counter)
	}

	msgs, _ := f.node.Messages(ctx, f.art.PredicateRoot)
	if len(msgs) != 0 {
		t.Errorf("got %d unspent messages, want 0", len(msgs))
	}

	coins, _ := f.node.Coins(ctx, f.signer.Address())
	if len(coins) != 1 {
		t.Fatalf("got %d coins, want 1 (change)", len(coins))
	}
	wantChange := uint64(testFeeCoin) - gasUsed(receipts)*testGasPrice
	if coins[0].Amount != wantChange || coins[0].UTXOID.TxID != tx.ID() {
		t.Errorf("got change %s, want %d in tx %s", spew.Sdump(coins[0]), wantChange, tx.ID())
	}

	item, ok := r.Read(ctx)
	if !ok {
		t.Fatal("no block")
	}
	b := item.(*Block)
	if b.Height != 1 || b.TxID != tx.ID() || b.Reverted {
		t.Errorf("got block %s", spew.Sdump(b))
	}

	// The message is spent, so the same transaction is now invalid.
	_, err = f.node.Submit(ctx, tx)
	if !fuel.IsInvalid(err) {
		t.Errorf("resubmitting: got error %v, want an invalid transaction", err)
	}
}

func TestSubmitRevertKeepsMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	nowhere := fuel.Bytes32{0xde, 0xad}
	m := f.node.SendMessage(testSender, f.art.PredicateRoot, 100, nowhere[:])
	coin := f.node.Mint(f.signer.Address(), fuel.BaseAsset, testFeeCoin)

	receipts, err := f.node.Submit(ctx, f.relayTx(t, m, coin))
	if err != nil {
		t.Fatal(err)
	}
	if !fuel.Reverted(receipts) {
		t.Fatalf("script did not revert:\n%s", spew.Sdump(receipts))
	}

	msgs, _ := f.node.Messages(ctx, f.art.PredicateRoot)
	if len(msgs) != 1 || msgs[0].ID() != m.ID() {
		t.Errorf("got unspent messages %s, want the relayed one", spew.Sdump(msgs))
	}
	coins, _ := f.node.Coins(ctx, f.signer.Address())
	if len(coins) != 1 || coins[0].UTXOID == coin.UTXOID {
		t.Fatalf("got coins %s, want only the change", spew.Sdump(coins))
	}
	if want := uint64(testFeeCoin) - gasUsed(receipts)*testGasPrice; coins[0].Amount != want {
		t.Errorf("got change %d, want %d", coins[0].Amount, want)
	}
}

func TestSubmitOutOfGasReverts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.node.SendMessage(testSender, f.art.PredicateRoot, 100, testContract[:])
	coin := f.node.Mint(f.signer.Address(), fuel.BaseAsset, testFeeCoin)

	tx := f.relayTx(t, m, coin)
	tx.GasLimit = 10
	if err := f.signer.Sign(ctx, tx); err != nil {
		t.Fatal(err)
	}
	receipts, err := f.node.Submit(ctx, tx)
	if err != nil {
		t.Fatalf("got error %v, want an included transaction", err)
	}
	if !fuel.Reverted(receipts) {
		t.Fatalf("script with gas limit 10 did not revert:\n%s", spew.Sdump(receipts))
	}
	if h := f.node.Height(); h != 1 {
		t.Errorf("got height %d, want 1", h)
	}
	if c, _ := f.node.Contract(testContract); c.Counter != 0 || c.Balance(fuel.BaseAsset) != 0 {
		t.Errorf("out of gas call changed the contract: %s", spew.Sdump(c))
	}
	msgs, _ := f.node.Messages(ctx, f.art.PredicateRoot)
	if len(msgs) != 1 || msgs[0].ID() != m.ID() {
		t.Errorf("got unspent messages %s, want the relayed one", spew.Sdump(msgs))
	}
	coins, _ := f.node.Coins(ctx, f.signer.Address())
	if len(coins) != 1 || coins[0].Amount != testFeeCoin-gasUsed(receipts)*testGasPrice {
		t.Errorf("got coins %s, want change after the fee", spew.Sdump(coins))
	}
}

func TestSubmitWrongSelectorReverts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := fuel.Bytes32{0x07}
	if _, err := f.node.Deploy(other, testSelector+1); err != nil {
		t.Fatal(err)
	}
	m := f.node.SendMessage(testSender, f.art.PredicateRoot, 5, other[:])
	coin := f.node.Mint(f.signer.Address(), fuel.BaseAsset, testFeeCoin)
	receipts, err := f.node.Submit(ctx, f.relayTx(t, m, coin))
	if err != nil {
		t.Fatal(err)
	}
	if !fuel.Reverted(receipts) {
		t.Fatal("call with the wrong selector did not revert")
	}
	if c, _ := f.node.Contract(other); c.Counter != 0 || c.Balance(fuel.BaseAsset) != 0 {
		t.Errorf("reverted call changed the contract: %s", spew.Sdump(c))
	}
}

func TestSubmitInvalid(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(f *fixture, tx *fuel.Transaction)
	}{
		{
			name: "unsigned",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.Witnesses = nil
			},
		},
		{
			name: "signed by another key",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				other, _ := signer.Generate()
				other.Sign(ctx, tx)
			},
		},
		{
			name: "changed after signing",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.GasLimit--
			},
		},
		{
			name: "script does not match predicate",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.Script = append(tx.Script, 0, 0, 0, 0)
				f.signer.Sign(ctx, tx)
			},
		},
		{
			name: "missing contract output",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.Outputs = tx.Outputs[1:]
				f.signer.Sign(ctx, tx)
			},
		},
		{
			name: "second data message",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				m2 := f.node.SendMessage(testSender, f.art.PredicateRoot, 1, testContract[:])
				tx.Inputs = append(tx.Inputs, m2.PredicateInput(f.art.Predicate, nil))
				f.signer.Sign(ctx, tx)
			},
		},
		{
			name: "fee too high",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.GasPrice = 1000
				f.signer.Sign(ctx, tx)
			},
		},
		{
			name: "unknown message",
			mutate: func(f *fixture, tx *fuel.Transaction) {
				tx.Inputs[0].(*fuel.MessageInput).Nonce++
				f.signer.Sign(ctx, tx)
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.node.SendMessage(testSender, f.art.PredicateRoot, 100, testContract[:])
			coin := f.node.Mint(f.signer.Address(), fuel.BaseAsset, testFeeCoin)
			tx := f.relayTx(t, m, coin)
			c.mutate(f, tx)

			_, err := f.node.Submit(ctx, tx)
			if !fuel.IsInvalid(err) {
				t.Fatalf("got error %v, want an invalid transaction", err)
			}
			if h := f.node.Height(); h != 0 {
				t.Errorf("got height %d after an invalid transaction, want 0", h)
			}
			if coins, _ := f.node.Coins(ctx, f.signer.Address()); len(coins) != 1 || coins[0].UTXOID != coin.UTXOID {
				t.Errorf("fee coin was spent")
			}
		})
	}
}

func TestHTTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	server := httptest.NewServer(f.node.Handler())
	defer server.Close()
	client := NewClient(server.URL)

	other := fuel.Bytes32{0x0c}
	if _, err := client.Deploy(ctx, other, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Deploy(ctx, other, 0); err == nil {
		t.Error("deploying twice succeeded")
	}

	m, err := client.SendMessage(ctx, testSender, f.art.PredicateRoot, 40, other[:])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Mint(ctx, f.signer.Address(), fuel.BaseAsset, testFeeCoin); err != nil {
		t.Fatal(err)
	}

	msgs, err := client.Messages(ctx, f.art.PredicateRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID() != m.ID() {
		t.Fatalf("got messages %s, want the sent one", spew.Sdump(msgs))
	}
	coins, err := client.Coins(ctx, f.signer.Address())
	if err != nil {
		t.Fatal(err)
	}
	if len(coins) != 1 {
		t.Fatalf("got %d coins, want 1", len(coins))
	}

	tx := f.relayTx(t, msgs[0], coins[0])
	receipts, err := client.Submit(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if fuel.Reverted(receipts) {
		t.Fatalf("script reverted:\n%s", spew.Sdump(receipts))
	}

	_, err = client.Submit(ctx, tx)
	if !fuel.IsInvalid(err) {
		t.Errorf("resubmitting over http: got error %v, want an invalid transaction", err)
	}

	c, err := client.Contract(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if c.Counter != 1 || c.Balance(fuel.BaseAsset) != 40 {
		t.Errorf("got contract %s", spew.Sdump(c))
	}
	if _, err := client.Contract(ctx, fuel.Bytes32{0xff}); err == nil {
		t.Error("fetching an unknown contract succeeded")
	}

	b, err := client.Block(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if b.TxID != tx.ID() {
		t.Errorf("got block tx %s, want %s", b.TxID, tx.ID())
	}
}
