package domain

import "github.com/pkg/errors"

// Trade rejection reasons. Every rejected trade leaves the ledger untouched.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// Reason codes reported to consumers.
const (
	ReasonInvalidAmount        = "invalid_amount"
	ReasonUnknownInstrument    = "unknown_instrument"
	ReasonInsufficientFunds    = "insufficient_funds"
	ReasonInsufficientHoldings = "insufficient_holdings"
	ReasonInternal             = "internal"
)

// ReasonOf maps an error to its reason code. Returns "" for nil.
func ReasonOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrUnknownInstrument):
		return ReasonUnknownInstrument
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrInsufficientHoldings):
		return ReasonInsufficientHoldings
	default:
		return ReasonInternal
	}
}
