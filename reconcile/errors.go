package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicate           = errors.New("duplicate transaction")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrIneligibleState     = errors.New("transaction not in an eligible state")
	ErrPlayerRestricted    = errors.New("player is restricted")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrWallet              = errors.New("wallet ledger error")
	// ErrAmountPrecision always comes wrapped together with ErrInvalidRequest.
	ErrAmountPrecision = errors.New("amount finer than the currency precision")
	// ErrUnrecorded means the ledger applied the mutation but the journal
	// commit failed afterwards. The two are out of step until reconciled by hand.
	ErrUnrecorded = errors.New("ledger applied but journal commit failed")
)

type Kind int

const (
	KindInvalid Kind = iota
	KindNotFound
	KindDuplicate
	KindPrecondition
	KindIntegration
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindPrecondition:
		return "precondition"
	case KindIntegration:
		return "integration"
	default:
		return "invalid"
	}
}

// Failure is the typed error every operation returns. Balance is the current
// ledger balance when it was known at the time of failure.
type Failure struct {
	Kind       Kind
	Op         string
	Ref        string
	Status     int
	Balance    decimal.Decimal
	HasBalance bool
	Err        error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s %s: %v (ledger status %d)", f.Op, f.Ref, f.Err, f.Status)
	}
	return fmt.Sprintf("%s %s: %v", f.Op, f.Ref, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrPlayerNotFound), errors.Is(err, ErrTransactionNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrIneligibleState),
		errors.Is(err, ErrPlayerRestricted), errors.Is(err, ErrCurrencyMismatch):
		return KindPrecondition
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalid
	default:
		return KindIntegration
	}
}

// AsFailure extracts the Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}
