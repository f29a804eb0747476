package asm

// Transaction field selectors for GTF. Fields in the 0x1xx range are
// indexed by input; the index is taken from register rb.
const (
	GTFScriptLength           = 0x005
	GTFInputsCount            = 0x007
	GTFScript                 = 0x00b
	GTFInputType              = 0x101
	GTFInputCoinAmount        = 0x105
	GTFInputContractID        = 0x113
	GTFInputMessageID         = 0x114
	GTFInputMessageAmount     = 0x117
	GTFInputMessageDataLength = 0x11a
	GTFInputMessageData       = 0x11d
)
