package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/FuelLabs/bridge-message-predicates/asm"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"
)

const (
	r0 asm.Reg = asm.FirstWritable + iota
	r1
	r2
	r3
)

type testHost struct {
	calls []Call
	err   error
}

func (h *testHost) Call(ctx context.Context, c *Call) (uint64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.calls = append(h.calls, *c)
	return 7, nil
}

func mustBuild(t *testing.T, b *asm.Builder) []byte {
	t.Helper()
	prog, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return prog.MustBytes()
}

var contractID = fuel.Bytes32{0xc0, 0x17}

func scriptTx(script []byte) *fuel.Transaction {
	return &fuel.Transaction{
		GasLimit: 100000,
		Script:   script,
		Inputs: []fuel.Input{
			&fuel.MessageInput{Sender: fuel.Bytes32{1}, Amount: 100, Data: append(contractID[:], 0xaa)},
			&fuel.ContractInput{ContractID: contractID},
			&fuel.CoinInput{Amount: 10},
		},
		Outputs: []fuel.Output{&fuel.ContractOutput{InputIndex: 1}},
	}
}

func TestArithmeticAndJumps(t *testing.T) {
	// sum 1..5 with a backward loop
	b := asm.NewBuilder()
	loop := b.NewLabel()
	b.Movi(r0, 5).
		Movi(r1, 0).
		SetLabel(loop).
		Add(r1, r1, r0).
		Subi(r0, r0, 1).
		Jnzi(r0, loop).
		Ret(r1)

	res := RunScript(context.Background(), scriptTx(mustBuild(t, b)), &testHost{})
	if res.Reverted {
		t.Fatalf("reverted: %v", res.Err)
	}
	if res.Val != 15 {
		t.Errorf("got %d, want 15", res.Val)
	}
	if fuel.Reverted(res.Receipts) {
		t.Error("receipts report a revert")
	}
	if res.GasUsed == 0 {
		t.Error("no gas used")
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		op   func(b *asm.Builder) *asm.Builder
		want uint64
	}{
		{func(b *asm.Builder) *asm.Builder { return b.Eq(r2, r0, r1) }, 0},
		{func(b *asm.Builder) *asm.Builder { return b.Gt(r2, r0, r1) }, 1},
		{func(b *asm.Builder) *asm.Builder { return b.Lt(r2, r0, r1) }, 0},
		{func(b *asm.Builder) *asm.Builder { return b.Sub(r2, r0, r1) }, 2},
		{func(b *asm.Builder) *asm.Builder { return b.Eq(r2, r0, r0) }, 1},
	}
	for i, c := range cases {
		b := asm.NewBuilder().Movi(r0, 5).Movi(r1, 3)
		c.op(b).Ret(r2)
		res := RunScript(context.Background(), scriptTx(mustBuild(t, b)), nil)
		if res.Reverted || res.Val != c.want {
			t.Errorf("case %d: got %d (reverted %v), want %d", i, res.Val, res.Reverted, c.want)
		}
	}
}

func TestFaultsRevert(t *testing.T) {
	cases := []struct {
		name  string
		build func(b *asm.Builder)
		want  error
	}{
		{"write outside stack", func(b *asm.Builder) { b.Sw(asm.RegZero, asm.RegOne, 0).Ret(asm.RegZero) }, ErrMemoryWrite},
		{"write past stack pointer", func(b *asm.Builder) { b.Cfei(8).Sw(asm.RegSP, asm.RegOne, 0).Ret(asm.RegZero) }, ErrMemoryWrite},
		{"falls off the end", func(b *asm.Builder) { b.Noop() }, ErrPCOutOfBounds},
		{"input index", func(b *asm.Builder) { b.Movi(r0, 9).Gtf(r1, r0, asm.GTFInputType).Ret(asm.RegZero) }, ErrInputIndex},
		{"input type", func(b *asm.Builder) { b.Gtf(r1, asm.RegOne, asm.GTFInputMessageAmount).Ret(asm.RegZero) }, ErrInputType},
		{"out of gas", func(b *asm.Builder) {
			l := b.NewLabel()
			b.SetLabel(l).Ji(l)
		}, ErrOutOfGas},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := asm.NewBuilder()
			c.build(b)
			res := RunScript(context.Background(), scriptTx(mustBuild(t, b)), nil)
			if !res.Reverted {
				t.Fatal("script did not revert")
			}
			if res.Val != CodeFault {
				t.Errorf("got revert code %#x, want %#x", res.Val, CodeFault)
			}
			if errors.Root(res.Err) != c.want {
				t.Errorf("got error %v, want %v", res.Err, c.want)
			}
			if !fuel.Reverted(res.Receipts) {
				t.Errorf("receipts do not show a revert: %s", spew.Sdump(res.Receipts))
			}
		})
	}
}

func TestStackAndHash(t *testing.T) {
	// hash the script itself into the stack and compare with a copy
	b := asm.NewBuilder()
	b.Move(r0, asm.RegSP).
		Cfei(64).
		Gtf(r1, asm.RegZero, asm.GTFScript).
		Gtf(r2, asm.RegZero, asm.GTFScriptLength).
		S256(r0, r1, r2).
		Addi(r3, r0, 32).
		Mcpi(r3, r0, 32).
		Movi(r1, 32).
		Meq(r2, r0, r3, r1).
		Ret(r2)
	res := RunScript(context.Background(), scriptTx(mustBuild(t, b)), nil)
	if res.Reverted || res.Val != 1 {
		t.Fatalf("got %d (reverted %v: %v), want 1", res.Val, res.Reverted, res.Err)
	}
}

// callScript forwards the first message's amount to the contract
// named by the first 32 bytes of its data.
func callScript(t *testing.T) []byte {
	b := asm.NewBuilder()
	sel := b.Word(0xabcd)
	b.Move(r0, asm.RegSP).
		Cfei(80).
		Addi(r1, r0, 32).
		Gtf(r2, asm.RegZero, asm.GTFInputMessageAmount).
		Gtf(r3, asm.RegZero, asm.GTFInputMessageData).
		Mcpi(r1, r3, 32).
		LwConst(r3, sel).
		Sw(r1, r3, 4).
		Sw(r1, asm.RegOne, 5).
		Call(r1, r2, r0, asm.RegCGas).
		Ret(asm.RegZero)
	return mustBuild(t, b)
}

func TestCall(t *testing.T) {
	host := new(testHost)
	res := RunScript(context.Background(), scriptTx(callScript(t)), host)
	if res.Reverted {
		t.Fatalf("reverted: %v", res.Err)
	}
	if len(host.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(host.calls))
	}
	c := host.calls[0]
	if c.Contract != contractID || c.Amount != 100 || c.Selector != 0xabcd || c.Param != 1 || c.AssetID != fuel.BaseAsset {
		t.Errorf("got call %s", spew.Sdump(c))
	}
	if got := res.Balances[fuel.BaseAsset]; got != 10 {
		t.Errorf("got free balance %d, want 10", got)
	}
	if calls := fuel.Calls(res.Receipts); len(calls) != 1 || calls[0].To != contractID {
		t.Errorf("got call receipts %s", spew.Sdump(calls))
	}
}

func TestCallFailures(t *testing.T) {
	t.Run("host error", func(t *testing.T) {
		res := RunScript(context.Background(), scriptTx(callScript(t)), &testHost{err: &RevertError{Code: 42}})
		if !res.Reverted || res.Val != 42 {
			t.Errorf("got reverted %v code %d, want revert code 42", res.Reverted, res.Val)
		}
	})
	t.Run("contract not in inputs", func(t *testing.T) {
		tx := scriptTx(callScript(t))
		tx.Inputs[1] = &fuel.ContractInput{ContractID: fuel.Bytes32{9}}
		res := RunScript(context.Background(), tx, new(testHost))
		if errors.Root(res.Err) != ErrContractNotInInputs {
			t.Errorf("got %v, want ErrContractNotInInputs", res.Err)
		}
	})
	t.Run("not enough balance", func(t *testing.T) {
		tx := scriptTx(callScript(t))
		tx.GasPrice = 1
		tx.GasLimit = 50
		tx.Inputs[2] = &fuel.CoinInput{Amount: 40}
		// free base balance is 100 + 40 - 50 = 90 < 100
		res := RunScript(context.Background(), tx, new(testHost))
		if errors.Root(res.Err) != ErrNotEnoughBalance {
			t.Errorf("got %v, want ErrNotEnoughBalance", res.Err)
		}
	})
}

func predicateTx(t *testing.T, b *asm.Builder) *fuel.Transaction {
	code := mustBuild(t, b)
	tx := scriptTx([]byte{0x24, 0, 0, 0})
	msg := tx.Inputs[0].(*fuel.MessageInput)
	msg.Predicate = code
	msg.Recipient = fuel.CodeRoot(code)
	return tx
}

func TestVerifyPredicate(t *testing.T) {
	cases := []struct {
		name  string
		build func(b *asm.Builder)
		ok    bool
		want  error
	}{
		{"accept", func(b *asm.Builder) { b.Ret(asm.RegOne) }, true, nil},
		{"false", func(b *asm.Builder) { b.Ret(asm.RegZero) }, false, ErrPredicateFalse},
		{"revert", func(b *asm.Builder) { b.Rvrt(asm.RegOne) }, false, ErrPredicateRevert},
		{"call", func(b *asm.Builder) { b.Call(asm.RegSP, asm.RegZero, asm.RegSP, asm.RegCGas) }, false, ErrContext},
		{"reads script", func(b *asm.Builder) {
			b.Gtf(r0, asm.RegZero, asm.GTFScriptLength).Movi(r1, 4).Eq(r0, r0, r1).Ret(r0)
		}, true, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := asm.NewBuilder()
			c.build(b)
			ok, err := VerifyPredicate(predicateTx(t, b), 0)
			if ok != c.ok {
				t.Errorf("got %v, want %v (err %v)", ok, c.ok, err)
			}
			if errors.Root(err) != c.want {
				t.Errorf("got error %v, want %v", err, c.want)
			}
		})
	}
}

func TestVerifyPredicateOwner(t *testing.T) {
	tx := predicateTx(t, asm.NewBuilder().Ret(asm.RegOne))
	tx.Inputs[0].(*fuel.MessageInput).Recipient = fuel.Bytes32{1}
	if _, err := VerifyPredicate(tx, 0); errors.Root(err) != ErrPredicateOwner {
		t.Errorf("got %v, want ErrPredicateOwner", err)
	}
	if _, err := VerifyPredicate(tx, 1); errors.Root(err) != ErrNoPredicate {
		t.Errorf("contract input: got %v, want ErrNoPredicate", err)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	TraceOut = &buf
	defer func() { TraceOut = nil }()
	RunScript(context.Background(), scriptTx(mustBuild(t, asm.NewBuilder().Ret(asm.RegZero))), nil)
	if !bytes.Contains(buf.Bytes(), []byte("ret $zero")) {
		t.Errorf("trace missing instruction: %q", buf.String())
	}
}
