package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide parses a trade side, case-sensitive as stored.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	default:
		return "", errors.Errorf("unknown trade side %q", s)
	}
}

// Transaction immutable record of an executed trade.
type Transaction struct {
	// ID unique transaction identifier.
	ID string `json:"id"`
	// InstrumentID traded instrument.
	InstrumentID string `json:"instrumentId"`
	// Side buy or sell.
	Side Side `json:"side"`
	// Amount number of shares.
	Amount int64 `json:"amount"`
	// Price execution price per share.
	Price decimal.Decimal `json:"price"`
	// Total cash moved: cost plus fee for buys, revenue minus fee for sells.
	Total decimal.Decimal `json:"total"`
	// Timestamp execution time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// String returns a human-readable string representation.
func (t *Transaction) String() string {
	return fmt.Sprintf("%s %s %d @ %s total %s", t.Side, t.InstrumentID, t.Amount, t.Price.String(), t.Total.String())
}
