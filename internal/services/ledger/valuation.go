package ledger

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// Holding valuation of one position at current prices.
type Holding struct {
	InstrumentID    string          `json:"instrumentId"`
	Amount          int64           `json:"amount"`
	AverageBuyPrice decimal.Decimal `json:"averageBuyPrice"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPercent      decimal.Decimal `json:"pnlPercent"`
}

// Valuation portfolio marked to market.
type Valuation struct {
	CashBalance   decimal.Decimal `json:"cashBalance"`
	HoldingsValue decimal.Decimal `json:"holdingsValue"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	TotalEquity   decimal.Decimal `json:"totalEquity"`
	Holdings      []Holding       `json:"holdings"`
}

// Valuate marks every position to the current price.
func (l *Ledger) Valuate(ctx context.Context) (Valuation, error) {
	return l.ValuateState(ctx, l.State())
}

// ValuateState marks a previously read state to the current price.
func (l *Ledger) ValuateState(ctx context.Context, state domain.LedgerState) (Valuation, error) {
	v := Valuation{
		CashBalance:   state.CashBalance,
		HoldingsValue: decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalPnL:      decimal.Zero,
		Holdings:      make([]Holding, 0, len(state.Positions)),
	}

	for i := range state.Positions {
		p := &state.Positions[i]
		price, err := l.pricer.Price(ctx, p.InstrumentID)
		if err != nil {
			return Valuation{}, errors.Wrapf(err, "price position %s", p.InstrumentID)
		}

		h := Holding{
			InstrumentID:    p.InstrumentID,
			Amount:          p.Amount,
			AverageBuyPrice: p.AverageBuyPrice,
			CurrentPrice:    price,
			CostBasis:       p.CostBasis(),
			MarketValue:     p.MarketValue(price),
			PnL:             p.PnL(price),
			PnLPercent:      p.PnLPercent(price),
		}
		v.Holdings = append(v.Holdings, h)
		v.HoldingsValue = v.HoldingsValue.Add(h.MarketValue)
		v.TotalCost = v.TotalCost.Add(h.CostBasis)
		v.TotalPnL = v.TotalPnL.Add(h.PnL)
	}
	v.TotalEquity = v.CashBalance.Add(v.HoldingsValue)

	return v, nil
}

// Convert returns the valuation expressed in another display currency.
func (v Valuation) Convert(c domain.Converter) Valuation {
	out := Valuation{
		CashBalance:   c.Amount(v.CashBalance),
		HoldingsValue: c.Amount(v.HoldingsValue),
		TotalCost:     c.Amount(v.TotalCost),
		TotalPnL:      c.Amount(v.TotalPnL),
		TotalEquity:   c.Amount(v.TotalEquity),
		Holdings:      make([]Holding, len(v.Holdings)),
	}
	for i, h := range v.Holdings {
		h.AverageBuyPrice = c.Amount(h.AverageBuyPrice)
		h.CurrentPrice = c.Amount(h.CurrentPrice)
		h.CostBasis = c.Amount(h.CostBasis)
		h.MarketValue = c.Amount(h.MarketValue)
		h.PnL = c.Amount(h.PnL)
		out.Holdings[i] = h
	}
	return out
}
