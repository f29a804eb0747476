package contractmsg

import (
	"context"
	"testing"

	"github.com/FuelLabs/bridge-message-predicates/asm"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/vm"
	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"
)

var (
	contractA = fuel.Bytes32{0xa0}
	contractB = fuel.Bytes32{0xb0}
)

type recordingHost struct {
	calls []vm.Call
}

func (h *recordingHost) Call(_ context.Context, c *vm.Call) (uint64, error) {
	h.calls = append(h.calls, *c)
	return 0, nil
}

func build(t *testing.T, opts Options) *Artifacts {
	t.Helper()
	a, err := Build(opts)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func message(a *Artifacts, nonce, amount uint64, data []byte) *fuel.MessageInput {
	m := &fuel.Message{
		Sender:    fuel.Bytes32{0x5e},
		Recipient: a.PredicateRoot,
		Nonce:     nonce,
		Owner:     a.PredicateRoot,
		Amount:    amount,
		Data:      data,
	}
	return m.PredicateInput(a.Predicate, nil)
}

// relayTx is a transaction shaped like the ones BuildRelayTx makes,
// with extra inputs appended.
func relayTx(a *Artifacts, extra ...fuel.Input) *fuel.Transaction {
	tx := &fuel.Transaction{
		GasLimit: MinGasLimit,
		Script:   a.Script,
		Inputs: []fuel.Input{
			message(a, 1, 100, contractA[:]),
			&fuel.ContractInput{ContractID: contractA},
			&fuel.CoinInput{Amount: 1000},
		},
		Outputs: []fuel.Output{&fuel.ContractOutput{InputIndex: 1}, &fuel.VariableOutput{}},
	}
	tx.Inputs = append(tx.Inputs, extra...)
	return tx
}

func TestPredicateShape(t *testing.T) {
	hash := fuel.Bytes32{1, 2, 3}
	prog, err := BuildPredicate(HashOnly, hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Instructions) != 12 {
		t.Errorf("got %d instructions, want 12:\n%s", len(prog.Instructions), prog)
	}
	if string(prog.Data[:32]) != string(hash[:]) {
		t.Errorf("constant block does not start with the script hash:\n%s", prog)
	}
	b := prog.MustBytes()
	if len(b)%8 != 0 {
		t.Errorf("predicate is %d bytes, want a multiple of 8", len(b))
	}
	back, err := asm.Disassemble(b, len(prog.Instructions))
	if err != nil {
		t.Fatal(err)
	}
	if back.String() != prog.String() {
		t.Errorf("disassembly differs:\n%s\nwant:\n%s", back, prog)
	}

	if _, err := BuildPredicate(PredicatePolicy(9), hash); errors.Root(err) != ErrPolicy {
		t.Errorf("got %v, want ErrPolicy", err)
	}
}

func TestPredicateBindsScript(t *testing.T) {
	for _, policy := range []Policy{SingleMessagePolicy, MultiMessagePolicy} {
		t.Run(policy.String(), func(t *testing.T) {
			a := build(t, Options{Policy: policy, Signature: DefaultSignature})

			ok, err := vm.VerifyPredicate(relayTx(a), 0)
			if !ok {
				t.Fatalf("predicate rejected its own script: %v", err)
			}

			tx := relayTx(a)
			tx.Script = append(append([]byte(nil), a.Script...), 0, 0, 0, 0)
			ok, err = vm.VerifyPredicate(tx, 0)
			if ok || errors.Root(err) != vm.ErrPredicateRevert {
				t.Errorf("got %v, %v for a different script; want rejection", ok, err)
			}
			for _, i := range []int{0, len(a.Script) / 2, len(a.Script) - 1} {
				tx := relayTx(a)
				tx.Script = append([]byte(nil), a.Script...)
				tx.Script[i] ^= 0x01
				if ok, _ := vm.VerifyPredicate(tx, 0); ok {
					t.Errorf("predicate accepted a script with byte %d flipped", i)
				}
			}

			// Another predicate's root is a different address.
			other := build(t, Options{Policy: policy, Signature: "other(u64)"})
			if other.PredicateRoot == a.PredicateRoot {
				t.Error("different scripts give the same predicate root")
			}
		})
	}
}

func TestPredicateScan(t *testing.T) {
	single := build(t, Options{Policy: SingleMessagePolicy, Signature: DefaultSignature})
	multi := build(t, Options{Policy: MultiMessagePolicy, Signature: DefaultSignature})

	cases := []struct {
		name       string
		extra      func(a *Artifacts) []fuel.Input
		wantSingle bool
		wantMulti  bool
	}{
		{
			name:       "one data message",
			extra:      func(*Artifacts) []fuel.Input { return nil },
			wantSingle: true,
			wantMulti:  true,
		},
		{
			name: "second data message",
			extra: func(a *Artifacts) []fuel.Input {
				return []fuel.Input{message(a, 2, 5, contractB[:])}
			},
			wantSingle: true,
			wantMulti:  false,
		},
		{
			name: "extra message without data",
			extra: func(a *Artifacts) []fuel.Input {
				return []fuel.Input{message(a, 2, 5, nil)}
			},
			wantSingle: true,
			wantMulti:  true,
		},
		{
			name: "max inputs",
			extra: func(*Artifacts) []fuel.Input {
				return []fuel.Input{&fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}}
			},
			wantSingle: true,
			wantMulti:  true,
		},
		{
			name: "too many inputs",
			extra: func(*Artifacts) []fuel.Input {
				return []fuel.Input{&fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}, &fuel.CoinInput{}}
			},
			wantSingle: true,
			wantMulti:  false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, err := vm.VerifyPredicate(relayTx(single, c.extra(single)...), 0)
			if ok != c.wantSingle {
				t.Errorf("hash-only: got %v (%v), want %v", ok, err, c.wantSingle)
			}
			ok, err = vm.VerifyPredicate(relayTx(multi, c.extra(multi)...), 0)
			if ok != c.wantMulti {
				t.Errorf("message-scan: got %v (%v), want %v", ok, err, c.wantMulti)
			}
			if !ok && errors.Root(err) != vm.ErrPredicateRevert {
				t.Errorf("message-scan rejected with %v, want a revert", err)
			}
		})
	}
}

func TestFunctionSelector(t *testing.T) {
	if got := FunctionSelector(DefaultSignature); got != 0xb93e6a3d {
		t.Errorf("got %#x, want 0xb93e6a3d", got)
	}
	if FunctionSelector("a(u64)") == FunctionSelector("b(u64)") {
		t.Error("different signatures give the same selector")
	}
}

func TestParseSelector(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		err  error
	}{
		{"0", 0, nil},
		{"0xb93e6a3d", 0xb93e6a3d, nil},
		{"4294967295", 0xffffffff, nil},
		{"4294967296", 0, ErrSelector},
		{"0x1b93e6a3d", 0, ErrSelector},
		{"-1", 0, ErrSelector},
		{"process_message", 0, ErrSelector},
	}
	for _, c := range cases {
		got, err := ParseSelector(c.in)
		if errors.Root(err) != c.err {
			t.Errorf("ParseSelector(%q): got error %v, want %v", c.in, err, c.err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseSelector(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestSingleCallScript(t *testing.T) {
	a := build(t, Options{Policy: SingleMessagePolicy, Signature: DefaultSignature})
	sel := uint64(FunctionSelector(DefaultSignature))

	cases := []struct {
		name   string
		inputs []fuel.Input
		want   []vm.Call
	}{
		{
			name: "data message first",
			inputs: []fuel.Input{
				message(a, 1, 100, contractA[:]),
				&fuel.ContractInput{ContractID: contractA},
				&fuel.CoinInput{Amount: 1000},
			},
			want: []vm.Call{{Contract: contractA, Amount: 100, Selector: sel, Param: 0}},
		},
		{
			name: "message without data",
			inputs: []fuel.Input{
				message(a, 1, 100, nil),
				&fuel.CoinInput{Amount: 1000},
			},
			want: nil,
		},
		{
			name: "coin first",
			inputs: []fuel.Input{
				&fuel.CoinInput{Amount: 1000},
				message(a, 1, 100, contractA[:]),
				&fuel.ContractInput{ContractID: contractA},
			},
			want: nil,
		},
		{
			name:   "no inputs",
			inputs: nil,
			want:   nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tx := &fuel.Transaction{GasLimit: MinGasLimit, Script: a.Script, Inputs: c.inputs}
			h := new(recordingHost)
			res := vm.RunScript(context.Background(), tx, h)
			if res.Reverted {
				t.Fatalf("reverted: %v", res.Err)
			}
			checkCalls(t, h.calls, c.want)
		})
	}
}

func TestFanOutCallScript(t *testing.T) {
	a := build(t, Options{Policy: MultiMessagePolicy, Signature: DefaultSignature})
	sel := uint64(FunctionSelector(DefaultSignature))

	cases := []struct {
		name   string
		inputs []fuel.Input
		want   []vm.Call
	}{
		{
			name: "one message",
			inputs: []fuel.Input{
				message(a, 1, 100, contractA[:]),
				&fuel.ContractInput{ContractID: contractA},
				&fuel.CoinInput{Amount: 1000},
			},
			want: []vm.Call{{Contract: contractA, Amount: 100, Selector: sel, Param: 0}},
		},
		{
			name: "two messages, highest index first",
			inputs: []fuel.Input{
				message(a, 1, 100, contractA[:]),
				&fuel.ContractInput{ContractID: contractA},
				&fuel.CoinInput{Amount: 1000},
				message(a, 2, 7, contractB[:]),
				&fuel.ContractInput{ContractID: contractB},
			},
			want: []vm.Call{
				{Contract: contractB, Amount: 7, Selector: sel, Param: 3},
				{Contract: contractA, Amount: 100, Selector: sel, Param: 0},
			},
		},
		{
			name: "messages without data are skipped",
			inputs: []fuel.Input{
				message(a, 1, 100, nil),
				&fuel.CoinInput{Amount: 1000},
			},
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tx := &fuel.Transaction{GasLimit: MinGasLimit, Script: a.Script, Inputs: c.inputs}
			h := new(recordingHost)
			res := vm.RunScript(context.Background(), tx, h)
			if res.Reverted {
				t.Fatalf("reverted: %v", res.Err)
			}
			checkCalls(t, h.calls, c.want)
		})
	}
}

func checkCalls(t *testing.T, got, want []vm.Call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d calls, want %d:\n%s", len(got), len(want), spew.Sdump(got))
	}
	for i := range got {
		g, w := got[i], want[i]
		if g.Contract != w.Contract || g.Amount != w.Amount || g.Selector != w.Selector || g.Param != w.Param || g.AssetID != fuel.BaseAsset {
			t.Errorf("call %d: got %s, want %s", i, spew.Sdump(g), spew.Sdump(w))
		}
	}
}
