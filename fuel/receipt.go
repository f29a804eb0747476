package fuel

import "fmt"

type ReceiptType uint8

const (
	ReceiptCall ReceiptType = iota
	ReceiptReturn
	ReceiptRevert
	ReceiptScriptResult
)

func (t ReceiptType) String() string {
	switch t {
	case ReceiptCall:
		return "call"
	case ReceiptReturn:
		return "return"
	case ReceiptRevert:
		return "revert"
	case ReceiptScriptResult:
		return "script_result"
	}
	return fmt.Sprintf("receipt(%d)", uint8(t))
}

func (t ReceiptType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ReceiptType) UnmarshalText(text []byte) error {
	for c := ReceiptCall; c <= ReceiptScriptResult; c++ {
		if c.String() == string(text) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown receipt type %q", text)
}

// Receipt records one observable event of script execution.
// Which fields are set depends on Type:
//
//	call:          To, Amount, AssetID, Selector, Param, Gas
//	return:        Val
//	revert:        Val (the revert code)
//	script_result: Result (0 success, 1 revert), GasUsed
type Receipt struct {
	Type     ReceiptType `json:"type"`
	To       ContractID  `json:"to,omitempty"`
	Amount   uint64      `json:"amount,omitempty"`
	AssetID  AssetID     `json:"asset_id,omitempty"`
	Selector uint64      `json:"selector,omitempty"`
	Param    uint64      `json:"param,omitempty"`
	Gas      uint64      `json:"gas,omitempty"`
	Val      uint64      `json:"val,omitempty"`
	Result   uint64      `json:"result,omitempty"`
	GasUsed  uint64      `json:"gas_used,omitempty"`
}

// Script result codes.
const (
	ResultSuccess uint64 = 0
	ResultRevert  uint64 = 1
)

// Reverted reports whether receipts end in a reverted script result.
func Reverted(receipts []Receipt) bool {
	for i := len(receipts) - 1; i >= 0; i-- {
		if receipts[i].Type == ReceiptScriptResult {
			return receipts[i].Result != ResultSuccess
		}
	}
	return false
}

// Calls returns the call receipts in receipts.
func Calls(receipts []Receipt) []Receipt {
	var out []Receipt
	for _, r := range receipts {
		if r.Type == ReceiptCall {
			out = append(out, r)
		}
	}
	return out
}
