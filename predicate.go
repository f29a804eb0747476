package contractmsg

import (
	"github.com/FuelLabs/bridge-message-predicates/asm"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/errors"
)

// PredicateErrorCode is the revert code of a rejecting predicate.
const PredicateErrorCode uint64 = 0xffffffffffff0004

// Predicate registers.
const (
	regHashPtr     asm.Reg = 0x10
	regScriptPtr   asm.Reg = 0x11
	regScriptLen   asm.Reg = 0x12
	regExpectedPtr asm.Reg = 0x13
	regCompare     asm.Reg = 0x14
	regErrCode     asm.Reg = 0x15
	regVal32       asm.Reg = 0x16
	regCount       asm.Reg = 0x17
	regTmp         asm.Reg = 0x18
	regMsgType     asm.Reg = 0x19
	regInputType   asm.Reg = 0x1a
	regDataLen     asm.Reg = 0x1b
	regFound       asm.Reg = 0x1c
)

// BuildPredicate returns the predicate that admits transactions
// running the script whose hash is scriptHash.
//
// The predicate hashes the transaction's script into a fresh stack
// slot and compares it with the embedded hash. Under MessageScan it
// then walks the inputs from the last to the first, counting message
// inputs that carry data, and rejects if it finds more than one or if
// there are more than MaxRelayInputs inputs. Rejection reverts with
// PredicateErrorCode.
func BuildPredicate(p PredicatePolicy, scriptHash fuel.Bytes32) (*asm.Program, error) {
	if p != HashOnly && p != MessageScan {
		return nil, errors.WithDetailf(ErrPolicy, "predicate %s", p)
	}

	b := asm.NewBuilder()
	expected := b.Data(scriptHash[:])
	errCode := b.Word(PredicateErrorCode)
	reject := b.NewLabel()

	b.Move(regHashPtr, asm.RegSP).
		Cfei(32).
		Gtf(regScriptPtr, asm.RegZero, asm.GTFScript).
		Gtf(regScriptLen, asm.RegZero, asm.GTFScriptLength).
		S256(regHashPtr, regScriptPtr, regScriptLen).
		AddiConst(regExpectedPtr, expected).
		Addi(regVal32, asm.RegZero, 32).
		Meq(regCompare, regExpectedPtr, regHashPtr, regVal32).
		Jnei(regCompare, asm.RegOne, reject)

	if p == MessageScan {
		loop := b.NewLabel()
		accept := b.NewLabel()
		b.Gtf(regCount, asm.RegZero, asm.GTFInputsCount).
			Movi(regTmp, MaxRelayInputs).
			Gt(regTmp, regCount, regTmp).
			Jnzi(regTmp, reject).
			Movi(regMsgType, uint32(fuel.InputMessage)).
			Movi(regFound, 0).
			SetLabel(loop).
			Eq(regTmp, regCount, asm.RegZero).
			Jnzi(regTmp, accept).
			Subi(regCount, regCount, 1).
			Gtf(regInputType, regCount, asm.GTFInputType).
			Jnei(regInputType, regMsgType, loop).
			Gtf(regDataLen, regCount, asm.GTFInputMessageDataLength).
			Eq(regTmp, regDataLen, asm.RegZero).
			Jnzi(regTmp, loop).
			Addi(regFound, regFound, 1).
			Gt(regTmp, regFound, asm.RegOne).
			Jnzi(regTmp, reject).
			Ji(loop).
			SetLabel(accept)
	}

	b.Ret(asm.RegOne).
		SetLabel(reject).
		LwConst(regErrCode, errCode).
		Rvrt(regErrCode)

	return b.Build()
}
