package vm

import "github.com/chain/txvm/errors"

// Faults. A fault aborts execution: a faulting predicate rejects its
// transaction, a faulting script reverts it.
var (
	ErrContractNotInInputs = errors.New("called contract is not among the inputs")
	ErrContext             = errors.New("instruction not allowed in this context")
	ErrInputIndex          = errors.New("input index out of range")
	ErrInputType           = errors.New("wrong input type for field")
	ErrMemoryAccess        = errors.New("memory access out of bounds")
	ErrMemoryOverflow      = errors.New("memory overflow")
	ErrMemoryWrite         = errors.New("write outside writable memory")
	ErrNotEnoughBalance    = errors.New("not enough free balance")
	ErrOutOfGas            = errors.New("out of gas")
	ErrPCOutOfBounds       = errors.New("program counter out of bounds")
	ErrReservedRegister    = errors.New("write to reserved register")
	ErrUnknownField        = errors.New("unknown transaction field")
	ErrUnexpected          = errors.New("unexpected error")
)

// Predicate outcomes that are not faults.
var (
	ErrNoPredicate     = errors.New("input has no predicate")
	ErrPredicateFalse  = errors.New("predicate returned false")
	ErrPredicateOwner  = errors.New("predicate root does not match owner")
	ErrPredicateRevert = errors.New("predicate reverted")
)
