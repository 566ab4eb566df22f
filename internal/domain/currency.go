package domain

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Currency display currency.
type Currency string

const (
	// CurrencyKD primary currency, all ledger amounts are kept in it.
	CurrencyKD Currency = "KD"
	// CurrencyEUR secondary display currency.
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency parses a currency code, empty means primary.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case "", CurrencyKD:
		return CurrencyKD, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	default:
		return "", errors.Errorf("unsupported currency %q", s)
	}
}

// Converter converts primary-currency amounts for display.
type Converter struct {
	Currency Currency
	Rate     decimal.Decimal
}

// NewConverter returns a converter to currency; rate is units of the secondary
// currency per primary unit and is ignored for the primary currency.
func NewConverter(currency Currency, rate decimal.Decimal) Converter {
	if currency == CurrencyKD {
		rate = decimal.NewFromInt(1)
	}
	return Converter{Currency: currency, Rate: rate}
}

// Amount converts a decimal amount.
func (c Converter) Amount(v decimal.Decimal) decimal.Decimal {
	return v.Mul(c.Rate)
}

// Price converts a float price.
func (c Converter) Price(v float64) float64 {
	rate, _ := c.Rate.Float64()
	return v * rate
}
