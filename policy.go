package contractmsg

import (
	"fmt"

	"github.com/chain/txvm/errors"
)

// PredicatePolicy selects what the predicate checks besides the
// script hash.
type PredicatePolicy uint8

const (
	// HashOnly checks only that the transaction runs the expected script.
	HashOnly PredicatePolicy = iota + 1

	// MessageScan also scans the inputs and rejects the transaction
	// unless at most one message input carries data, and the input
	// count is at most MaxRelayInputs.
	MessageScan
)

// ScriptPolicy selects how the script forwards messages.
type ScriptPolicy uint8

const (
	// SingleCall forwards input 0, which must be the relayed message,
	// with call parameter 0.
	SingleCall ScriptPolicy = iota + 1

	// FanOutCall scans the inputs from the highest index down and
	// forwards every message input that carries data, passing the
	// input index as the call parameter.
	FanOutCall
)

// MaxRelayInputs is the most inputs a MessageScan predicate accepts.
const MaxRelayInputs = 8

var ErrPolicy = errors.New("invalid policy")

// Policy pairs a predicate policy with the script policy that
// forwards exactly what the predicate admits.
type Policy struct {
	Predicate PredicatePolicy `json:"predicate"`
	Script    ScriptPolicy    `json:"script"`
}

var (
	SingleMessagePolicy = Policy{HashOnly, SingleCall}
	MultiMessagePolicy  = Policy{MessageScan, FanOutCall}

	DefaultPolicy = MultiMessagePolicy
)

// Validate reports an error unless p is one of the two consistent pairs.
func (p Policy) Validate() error {
	if p != SingleMessagePolicy && p != MultiMessagePolicy {
		return errors.WithDetailf(ErrPolicy, "%s cannot be combined", p)
	}
	return nil
}

func (p PredicatePolicy) String() string {
	switch p {
	case HashOnly:
		return "hash-only"
	case MessageScan:
		return "message-scan"
	}
	return fmt.Sprintf("predicate-policy(%d)", uint8(p))
}

func (p ScriptPolicy) String() string {
	switch p {
	case SingleCall:
		return "single-call"
	case FanOutCall:
		return "fan-out-call"
	}
	return fmt.Sprintf("script-policy(%d)", uint8(p))
}

func (p Policy) String() string {
	return p.Predicate.String() + "+" + p.Script.String()
}

// ParsePolicy parses the names "single" and "multi", or a pair in
// the form returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "single", SingleMessagePolicy.String():
		return SingleMessagePolicy, nil
	case "multi", MultiMessagePolicy.String():
		return MultiMessagePolicy, nil
	}
	return Policy{}, errors.WithDetailf(ErrPolicy, "unknown policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
