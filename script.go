package contractmsg

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"

	"github.com/FuelLabs/bridge-message-predicates/asm"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// DefaultSignature is the contract entry point messages are
// delivered to.
const DefaultSignature = "process_message(u64)"

// FunctionSelector returns the first 4 bytes of the SHA-256 of sig.
func FunctionSelector(sig string) uint32 {
	h := sha256.Sum256([]byte(sig))
	return binary.BigEndian.Uint32(h[:4])
}

// ErrSelector means a function selector does not fit in 4 bytes.
var ErrSelector = errors.New("invalid function selector")

// ParseSelector parses a selector written in decimal or, with a 0x
// prefix, hex. Values above 32 bits are an error.
func ParseSelector(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.WithDetailf(ErrSelector, "%q: %s", s, err)
	}
	return uint32(v), nil
}

// Script registers.
const (
	regFrame    asm.Reg = 0x10 // base asset id, then the call frame
	regCallData asm.Reg = 0x11
	regDataPtr  asm.Reg = 0x12
	regSelector asm.Reg = 0x13
	regAmount   asm.Reg = 0x14
	regIndex    asm.Reg = 0x15
	regSTmp     asm.Reg = 0x16
	regSMsgType asm.Reg = 0x17
	regSType    asm.Reg = 0x18
	regSDataLen asm.Reg = 0x19
)

// Call frame layout, relative to regFrame.
const (
	frameAssetID  = 0  // 32 bytes, zero: the base asset
	frameContract = 32 // 32 bytes
	frameSelector = 64 // word
	frameParam    = 72 // word
	frameSize     = 80
)

// BuildScript returns the script that forwards relayed messages to
// the contracts named by the first 32 bytes of their data, calling
// the entry point identified by selector.
//
// Each call forwards the message amount in the base asset. A failed
// call reverts the whole transaction, so under FanOutCall either every
// qualifying message is delivered or none is.
func BuildScript(p ScriptPolicy, selector uint32) (*asm.Program, error) {
	b := asm.NewBuilder()
	sel := b.Word(uint64(selector))

	switch p {
	case SingleCall:
		// Input 0 qualifies only if it is a message carrying data.
		skip := b.NewLabel()
		b.Gtf(regSTmp, asm.RegZero, asm.GTFInputsCount).
			Eq(regSTmp, regSTmp, asm.RegZero).
			Jnzi(regSTmp, skip).
			Gtf(regSType, asm.RegZero, asm.GTFInputType).
			Movi(regSMsgType, uint32(fuel.InputMessage)).
			Jnei(regSType, regSMsgType, skip).
			Gtf(regSDataLen, asm.RegZero, asm.GTFInputMessageDataLength).
			Eq(regSTmp, regSDataLen, asm.RegZero).
			Jnzi(regSTmp, skip).
			Move(regFrame, asm.RegSP).
			Cfei(frameSize).
			Addi(regCallData, regFrame, frameContract).
			LwConst(regSelector, sel).
			Gtf(regAmount, asm.RegZero, asm.GTFInputMessageAmount).
			Gtf(regDataPtr, asm.RegZero, asm.GTFInputMessageData).
			Mcpi(regCallData, regDataPtr, 32).
			Sw(regCallData, regSelector, (frameSelector-frameContract)/8).
			Sw(regCallData, asm.RegZero, (frameParam-frameContract)/8).
			Call(regCallData, regAmount, regFrame, asm.RegCGas).
			SetLabel(skip).
			Ret(asm.RegZero)

	case FanOutCall:
		loop := b.NewLabel()
		done := b.NewLabel()
		b.Move(regFrame, asm.RegSP).
			Cfei(frameSize).
			Addi(regCallData, regFrame, frameContract).
			LwConst(regSelector, sel).
			Gtf(regIndex, asm.RegZero, asm.GTFInputsCount).
			Movi(regSMsgType, uint32(fuel.InputMessage)).
			SetLabel(loop).
			Eq(regSTmp, regIndex, asm.RegZero).
			Jnzi(regSTmp, done).
			Subi(regIndex, regIndex, 1).
			Gtf(regSType, regIndex, asm.GTFInputType).
			Jnei(regSType, regSMsgType, loop).
			Gtf(regSDataLen, regIndex, asm.GTFInputMessageDataLength).
			Eq(regSTmp, regSDataLen, asm.RegZero).
			Jnzi(regSTmp, loop).
			Gtf(regAmount, regIndex, asm.GTFInputMessageAmount).
			Gtf(regDataPtr, regIndex, asm.GTFInputMessageData).
			Mcpi(regCallData, regDataPtr, 32).
			Sw(regCallData, regSelector, (frameSelector-frameContract)/8).
			Sw(regCallData, regIndex, (frameParam-frameContract)/8).
			Call(regCallData, regAmount, regFrame, asm.RegCGas).
			Ji(loop).
			SetLabel(done).
			Ret(asm.RegZero)

	default:
		return nil, errors.WithDetailf(ErrPolicy, "script %s", p)
	}

	return b.Build()
}
