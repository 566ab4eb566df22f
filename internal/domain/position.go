package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Position held quantity of one instrument with its cost-weighted average purchase price.
type Position struct {
	InstrumentID    string          `json:"instrumentId"`
	Amount          int64           `json:"amount"`
	AverageBuyPrice decimal.Decimal `json:"averageBuyPrice"`
}

// NewPosition constructs a position opened by a buy.
func NewPosition(instrumentID string, amount int64, price decimal.Decimal) (*Position, error) {
	if amount <= 0 {
		return nil, errors.New("position amount must be greater than zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("entry price must be greater than zero")
	}

	return &Position{
		InstrumentID:    instrumentID,
		Amount:          amount,
		AverageBuyPrice: price,
	}, nil
}

// Add increases the position by amount shares bought for cost (price*amount, fee excluded)
// and recomputes the average buy price as a cost-weighted average.
func (p *Position) Add(amount int64, cost decimal.Decimal) {
	total := p.Amount + amount
	if total <= 0 {
		return
	}
	held := p.AverageBuyPrice.Mul(decimal.NewFromInt(p.Amount))
	p.AverageBuyPrice = held.Add(cost).Div(decimal.NewFromInt(total))
	p.Amount = total
}

// CostBasis returns amount * average buy price.
func (p *Position) CostBasis() decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.AverageBuyPrice.Mul(decimal.NewFromInt(p.Amount))
}

// MarketValue returns the position value at the given price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(p.Amount))
}

// PnL calculates unrealized profit and loss for the given market price.
func (p *Position) PnL(price decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return price.Sub(p.AverageBuyPrice).Mul(decimal.NewFromInt(p.Amount))
}

// PnLPercent returns PnL relative to cost basis, in percent.
func (p *Position) PnLPercent(price decimal.Decimal) decimal.Decimal {
	cost := p.CostBasis()
	if cost.IsZero() {
		return decimal.Zero
	}
	return p.PnL(price).Div(cost).Mul(hundred)
}

// IsPositive returns true if the position is open and has a positive amount.
func (p *Position) IsPositive() bool {
	return p != nil && p.Amount > 0
}
