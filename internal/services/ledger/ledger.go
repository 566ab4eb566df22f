// Package ledger executes trades against live prices and keeps the account's
// cash balance, positions and transaction log consistent.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

const persistTimeout = 5 * time.Second

var (
	DefaultFeeRate        = decimal.NewFromFloat(0.001)
	DefaultInitialBalance = decimal.NewFromInt(10000)
)

// Pricer returns the current price of an instrument.
// Unknown instruments must yield an error wrapping domain.ErrUnknownInstrument.
type Pricer interface {
	Price(ctx context.Context, instrumentID string) (decimal.Decimal, error)
}

// StateStore persists the ledger state in a single slot.
// Load returns nil state when nothing was saved yet.
type StateStore interface {
	Load(ctx context.Context) (*domain.LedgerState, error)
	Save(ctx context.Context, state domain.LedgerState) error
}

// Journal receives every executed transaction.
type Journal interface {
	Append(tx domain.Transaction) error
}

// Ledger is the single owner of the account state. All mutations are serialised
// on its mutex and replace balance, positions and log together.
type Ledger struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	pricer  Pricer
	store   StateStore
	journal Journal
	now     func() time.Time
	newID   func() string

	feeRate        decimal.Decimal
	initialBalance decimal.Decimal

	state domain.LedgerState
}

// Option configures the Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) {
		lg.logger = l
	}
}

// WithFeeRate sets the commission charged on gross notional.
func WithFeeRate(rate decimal.Decimal) Option {
	return func(lg *Ledger) {
		lg.feeRate = rate
	}
}

// WithInitialBalance sets the cash balance used when no saved state exists.
func WithInitialBalance(balance decimal.Decimal) Option {
	return func(lg *Ledger) {
		lg.initialBalance = balance
	}
}

// WithJournal sets a journal that receives every executed transaction.
func WithJournal(j Journal) Option {
	return func(lg *Ledger) {
		lg.journal = j
	}
}

// WithClock sets the time source for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) {
		lg.now = now
	}
}

// WithIDGenerator sets the transaction id generator.
func WithIDGenerator(gen func() string) Option {
	return func(lg *Ledger) {
		lg.newID = gen
	}
}

// New creates a ledger and restores its state from store. A missing or
// unreadable state falls back to the default account.
func New(ctx context.Context, pricer Pricer, store StateStore, opts ...Option) (*Ledger, error) {
	if pricer == nil {
		return nil, errors.New("pricer is required for ledger")
	}

	lg := &Ledger{
		logger:         zap.NewNop(),
		pricer:         pricer,
		store:          store,
		now:            time.Now,
		newID:          uuid.NewString,
		feeRate:        DefaultFeeRate,
		initialBalance: DefaultInitialBalance,
	}
	for _, opt := range opts {
		opt(lg)
	}
	if lg.logger == nil {
		lg.logger = zap.NewNop()
	}
	if lg.feeRate.IsNegative() {
		return nil, errors.Errorf("fee rate must not be negative, got %s", lg.feeRate)
	}
	if lg.initialBalance.IsNegative() {
		return nil, errors.Errorf("initial balance must not be negative, got %s", lg.initialBalance)
	}

	lg.state = domain.DefaultLedgerState(lg.initialBalance)
	if err := lg.restoreState(ctx); err != nil {
		lg.logger.Warn("failed to restore ledger state, starting from default", zap.Error(err))
		lg.state = domain.DefaultLedgerState(lg.initialBalance)
	}

	lg.logger.Info("ledger init",
		zap.String("cash", lg.state.CashBalance.String()),
		zap.Int("positions", len(lg.state.Positions)),
		zap.Int("transactions", len(lg.state.Transactions)),
		zap.String("fee_rate", lg.feeRate.String()))

	return lg, nil
}

// Execution executed transaction with the cash balance right after it.
type Execution struct {
	Transaction domain.Transaction
	CashBalance decimal.Decimal
}

// Execute runs a trade on the given side and reports the resulting cash
// balance read under the same lock as the trade.
func (l *Ledger) Execute(ctx context.Context, side domain.Side, instrumentID string, amount int64) (Execution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		tx  domain.Transaction
		err error
	)
	switch side {
	case domain.SideBuy:
		tx, err = l.buy(ctx, instrumentID, amount)
	case domain.SideSell:
		tx, err = l.sell(ctx, instrumentID, amount)
	default:
		return Execution{}, errors.Errorf("unknown trade side %q", side)
	}
	if err != nil {
		return Execution{}, err
	}
	return Execution{Transaction: tx, CashBalance: l.state.CashBalance}, nil
}

// Buy purchases amount shares at the current price plus commission.
func (l *Ledger) Buy(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buy(ctx, instrumentID, amount)
}

func (l *Ledger) buy(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInvalidAmount, "buy amount must be positive, got %d", amount)
	}

	price, err := l.pricer.Price(ctx, instrumentID)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "get price for buy")
	}

	shares := decimal.NewFromInt(amount)
	cost := price.Mul(shares)
	totalCost := cost.Add(cost.Mul(l.feeRate))

	if l.state.CashBalance.LessThan(totalCost) {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientFunds,
			"have %s need %s", l.state.CashBalance.String(), totalCost.String())
	}

	next := l.state.Clone()
	next.CashBalance = next.CashBalance.Sub(totalCost)
	if i := next.Position(instrumentID); i >= 0 {
		next.Positions[i].Add(amount, cost)
	} else {
		pos, err := domain.NewPosition(instrumentID, amount, price)
		if err != nil {
			return domain.Transaction{}, errors.Wrap(err, "open position")
		}
		next.Positions = append(next.Positions, *pos)
	}

	tx := l.newTransaction(instrumentID, domain.SideBuy, amount, price, totalCost)
	next.Transactions = prepend(next.Transactions, tx)

	l.commit(ctx, next, tx)
	return tx, nil
}

// Sell disposes of amount held shares at the current price minus commission.
// The average buy price of the remaining shares is left unchanged.
func (l *Ledger) Sell(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sell(ctx, instrumentID, amount)
}

func (l *Ledger) sell(ctx context.Context, instrumentID string, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInvalidAmount, "sell amount must be positive, got %d", amount)
	}

	price, err := l.pricer.Price(ctx, instrumentID)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "get price for sell")
	}

	i := l.state.Position(instrumentID)
	if i < 0 {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientHoldings, "no position in %s", instrumentID)
	}
	if held := l.state.Positions[i].Amount; held < amount {
		return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientHoldings,
			"have %d need %d of %s", held, amount, instrumentID)
	}

	revenue := price.Mul(decimal.NewFromInt(amount))
	totalRevenue := revenue.Sub(revenue.Mul(l.feeRate))

	next := l.state.Clone()
	next.CashBalance = next.CashBalance.Add(totalRevenue)
	next.Positions[i].Amount -= amount
	if next.Positions[i].Amount == 0 {
		next.Positions = append(next.Positions[:i], next.Positions[i+1:]...)
	}

	tx := l.newTransaction(instrumentID, domain.SideSell, amount, price, totalRevenue)
	next.Transactions = prepend(next.Transactions, tx)

	l.commit(ctx, next, tx)
	return tx, nil
}

// State returns a deep copy of the ledger state.
func (l *Ledger) State() domain.LedgerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// FeeRate returns the configured commission rate.
func (l *Ledger) FeeRate() decimal.Decimal {
	return l.feeRate
}

func (l *Ledger) newTransaction(instrumentID string, side domain.Side, amount int64, price, total decimal.Decimal) domain.Transaction {
	return domain.Transaction{
		ID:           l.newID(),
		InstrumentID: instrumentID,
		Side:         side,
		Amount:       amount,
		Price:        price,
		Total:        total,
		Timestamp:    l.now().UnixMilli(),
	}
}

// commit swaps in the new state, then persists and journals it. Caller holds the lock.
func (l *Ledger) commit(ctx context.Context, next domain.LedgerState, tx domain.Transaction) {
	l.state = next

	l.logger.Info("trade executed",
		zap.String("id", tx.ID),
		zap.String("side", string(tx.Side)),
		zap.String("instrument", tx.InstrumentID),
		zap.Int64("amount", tx.Amount),
		zap.String("price", tx.Price.String()),
		zap.String("total", tx.Total.String()),
		zap.String("cash", next.CashBalance.String()))

	l.persist(ctx)

	if l.journal != nil {
		if err := l.journal.Append(tx); err != nil {
			l.logger.Warn("failed to journal transaction", zap.String("id", tx.ID), zap.Error(err))
		}
	}
}

func (l *Ledger) restoreState(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	state, err := l.store.Load(ctx)
	if err != nil || state == nil {
		return err
	}
	if state.CashBalance.IsNegative() {
		return errors.Errorf("stored cash balance is negative: %s", state.CashBalance)
	}

	restored := state.Clone()
	restored.Positions = make([]domain.Position, 0, len(state.Positions))
	for _, p := range state.Positions {
		if p.Amount <= 0 {
			return errors.Errorf("stored position %s has non-positive amount %d", p.InstrumentID, p.Amount)
		}
		if _, err := l.pricer.Price(ctx, p.InstrumentID); err != nil {
			if !errors.Is(err, domain.ErrUnknownInstrument) {
				return errors.Wrapf(err, "price stored position %s", p.InstrumentID)
			}
			// instrument is no longer listed, the position can be neither valued nor sold
			l.logger.Warn("dropping stored position of unlisted instrument",
				zap.String("instrument", p.InstrumentID),
				zap.Int64("amount", p.Amount),
				zap.String("average_buy_price", p.AverageBuyPrice.String()))
			continue
		}
		restored.Positions = append(restored.Positions, p)
	}
	if restored.Transactions == nil {
		restored.Transactions = []domain.Transaction{}
	}
	l.state = restored
	return nil
}

func (l *Ledger) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	// the trade is already committed, so the write must outlive the caller's request
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := l.store.Save(ctx, l.state.Clone()); err != nil {
		l.logger.Warn("failed to persist ledger state", zap.Error(err))
	}
}

func prepend(txs []domain.Transaction, tx domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}
