package domain

import "github.com/shopspring/decimal"

// LedgerState authoritative record of cash, positions and transaction history.
type LedgerState struct {
	CashBalance  decimal.Decimal `json:"cashBalance"`
	Positions    []Position      `json:"positions"`
	Transactions []Transaction   `json:"transactions"`
}

// DefaultLedgerState returns an empty account funded with the given balance.
func DefaultLedgerState(balance decimal.Decimal) LedgerState {
	return LedgerState{
		CashBalance:  balance,
		Positions:    []Position{},
		Transactions: []Transaction{},
	}
}

// Clone returns a deep copy.
func (s LedgerState) Clone() LedgerState {
	positions := make([]Position, len(s.Positions))
	copy(positions, s.Positions)
	transactions := make([]Transaction, len(s.Transactions))
	copy(transactions, s.Transactions)

	return LedgerState{
		CashBalance:  s.CashBalance,
		Positions:    positions,
		Transactions: transactions,
	}
}

// Position returns the position index for the instrument, -1 if none.
func (s *LedgerState) Position(instrumentID string) int {
	for i := range s.Positions {
		if s.Positions[i].InstrumentID == instrumentID {
			return i
		}
	}
	return -1
}
