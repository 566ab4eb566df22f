package events

import (
	"time"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// TradeEvent is published after a trade is committed to the ledger.
type TradeEvent struct {
	Timestamp   time.Time          `json:"ts"`
	Transaction domain.Transaction `json:"transaction"`
	CashBalance string             `json:"cashBalance"`
}
