package contractmsg

import (
	"testing"

	"github.com/chain/txvm/errors"
)

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"single", SingleMessagePolicy, true},
		{"multi", MultiMessagePolicy, true},
		{"hash-only+single-call", SingleMessagePolicy, true},
		{"message-scan+fan-out-call", MultiMessagePolicy, true},
		{"hash-only+fan-out-call", Policy{}, false},
		{"", Policy{}, false},
	}
	for _, c := range cases {
		got, err := ParsePolicy(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ParsePolicy(%q): got error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParsePolicy(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	for _, p := range []Policy{SingleMessagePolicy, MultiMessagePolicy} {
		if err := p.Validate(); err != nil {
			t.Errorf("%s: %s", p, err)
		}
	}
	for _, p := range []Policy{{HashOnly, FanOutCall}, {MessageScan, SingleCall}, {}} {
		if err := p.Validate(); errors.Root(err) != ErrPolicy {
			t.Errorf("%s: got %v, want ErrPolicy", p, err)
		}
	}
	if DefaultPolicy != MultiMessagePolicy {
		t.Errorf("default policy is %s", DefaultPolicy)
	}
}

func TestPolicyText(t *testing.T) {
	text, err := SingleMessagePolicy.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var p Policy
	if err := p.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if p != SingleMessagePolicy {
		t.Errorf("got %s, want %s", p, SingleMessagePolicy)
	}
}
