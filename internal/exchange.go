package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal/domain"
	"github.com/vadiminshakov/kxmarket/internal/events"
	"github.com/vadiminshakov/kxmarket/internal/metrics"
	"github.com/vadiminshakov/kxmarket/internal/services/ledger"
	"github.com/vadiminshakov/kxmarket/internal/services/market"
)

const eventBuffer = 64

// Portfolio ledger state together with its valuation at current prices.
type Portfolio struct {
	State     domain.LedgerState `json:"state"`
	Valuation ledger.Valuation   `json:"valuation"`
}

// Exchange owns the price engine and the ledger. Consumers read snapshots and
// call Buy, Sell and Tick; nothing else mutates exchange state.
type Exchange struct {
	engine   *market.Engine
	ledger   *ledger.Ledger
	logger   *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration

	marketEvents *events.Broadcaster[domain.MarketSnapshot]
	tradeEvents  *events.Broadcaster[events.TradeEvent]
}

// ExchangeOption configures the Exchange.
type ExchangeOption func(*Exchange)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExchangeOption {
	return func(x *Exchange) {
		x.logger = l
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) ExchangeOption {
	return func(x *Exchange) {
		x.metrics = m
	}
}

// WithTickInterval sets the interval Run ticks at.
func WithTickInterval(d time.Duration) ExchangeOption {
	return func(x *Exchange) {
		x.interval = d
	}
}

// NewExchange wires the engine and the ledger together.
func NewExchange(engine *market.Engine, lg *ledger.Ledger, opts ...ExchangeOption) (*Exchange, error) {
	if engine == nil {
		return nil, errors.New("market engine is required")
	}
	if lg == nil {
		return nil, errors.New("ledger is required")
	}

	x := &Exchange{
		engine:       engine,
		ledger:       lg,
		logger:       zap.NewNop(),
		interval:     market.DefaultTickInterval,
		marketEvents: events.NewBroadcaster[domain.MarketSnapshot](eventBuffer),
		tradeEvents:  events.NewBroadcaster[events.TradeEvent](eventBuffer),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.logger == nil {
		x.logger = zap.NewNop()
	}
	if x.interval <= 0 {
		return nil, errors.Errorf("tick interval must be positive, got %s", x.interval)
	}

	engine.OnTick(x.onTick)

	return x, nil
}

// Run drives the simulation until ctx is cancelled.
func (x *Exchange) Run(ctx context.Context) error {
	return x.engine.Run(ctx, x.interval)
}

// Tick advances the market by one step outside the periodic loop.
func (x *Exchange) Tick() domain.MarketSnapshot {
	return x.engine.Tick()
}

func (x *Exchange) onTick(s domain.MarketSnapshot) {
	if x.metrics != nil {
		x.metrics.ObserveTick(s)
	}
	missed := x.marketEvents.Publish(s)
	if x.metrics != nil {
		x.metrics.ObserveDrops("market", missed)
	}
}

// Snapshot returns the current market state.
func (x *Exchange) Snapshot() domain.MarketSnapshot {
	return x.engine.Snapshot()
}

// Instrument returns one instrument with its history.
func (x *Exchange) Instrument(id string) (domain.Instrument, error) {
	return x.engine.Instrument(id)
}

// Buy purchases amount shares of the instrument.
func (x *Exchange) Buy(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	return x.Trade(ctx, domain.SideBuy, instrumentID, amount)
}

// Sell disposes of amount shares of the instrument.
func (x *Exchange) Sell(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	return x.Trade(ctx, domain.SideSell, instrumentID, amount)
}

// Trade executes a trade on the given side.
func (x *Exchange) Trade(ctx context.Context, side domain.Side, instrumentID string, amount int64) (domain.Transaction, error) {
	switch side {
	case domain.SideBuy, domain.SideSell:
	default:
		return domain.Transaction{}, errors.Errorf("unknown trade side %q", side)
	}

	exec, err := x.ledger.Execute(ctx, side, instrumentID, amount)
	if err != nil {
		reason := domain.ReasonOf(err)
		if x.metrics != nil {
			x.metrics.ObserveReject(side, reason)
		}
		if reason == domain.ReasonInternal {
			x.logger.Error("trade failed",
				zap.String("side", string(side)),
				zap.String("instrument", instrumentID),
				zap.Error(err))
		} else {
			x.logger.Info("trade rejected",
				zap.String("side", string(side)),
				zap.String("instrument", instrumentID),
				zap.Int64("amount", amount),
				zap.String("reason", reason))
		}
		return domain.Transaction{}, err
	}

	tx := exec.Transaction
	if x.metrics != nil {
		fee, _ := tradeFee(tx).Float64()
		balance, _ := exec.CashBalance.Float64()
		x.metrics.ObserveTrade(side, fee, balance)
	}
	missed := x.tradeEvents.Publish(events.TradeEvent{
		Timestamp:   time.UnixMilli(tx.Timestamp),
		Transaction: tx,
		CashBalance: exec.CashBalance.String(),
	})
	if x.metrics != nil {
		x.metrics.ObserveDrops("trades", missed)
	}

	return tx, nil
}

// Portfolio returns the ledger state and its valuation.
func (x *Exchange) Portfolio(ctx context.Context) (Portfolio, error) {
	state := x.ledger.State()
	v, err := x.ledger.ValuateState(ctx, state)
	if err != nil {
		return Portfolio{}, errors.Wrap(err, "valuate portfolio")
	}
	return Portfolio{State: state, Valuation: v}, nil
}

// MarketEvents returns the broadcaster of committed tick snapshots.
func (x *Exchange) MarketEvents() *events.Broadcaster[domain.MarketSnapshot] {
	return x.marketEvents
}

// TradeEvents returns the broadcaster of executed trades.
func (x *Exchange) TradeEvents() *events.Broadcaster[events.TradeEvent] {
	return x.tradeEvents
}

// tradeFee is the commission embedded in the transaction total.
func tradeFee(tx domain.Transaction) decimal.Decimal {
	gross := tx.Price.Mul(decimal.NewFromInt(tx.Amount))
	if tx.Side == domain.SideBuy {
		return tx.Total.Sub(gross)
	}
	return gross.Sub(tx.Total)
}
