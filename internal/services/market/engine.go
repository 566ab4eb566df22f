// Package market runs the price simulation: a bounded random walk over all
// listed instruments and a capitalization-weighted index derived from it.
package market

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal/domain"
	"github.com/vadiminshakov/kxmarket/pkg/ringbuf"
)

const (
	DefaultHistoryCapacity = 60
	DefaultMinPrice        = 0.1
	DefaultTickInterval    = 2 * time.Second

	// IndexBase index level when every instrument trades at its base price.
	IndexBase = 1000.0

	spikeThreshold  = 0.9
	spikeMultiplier = 3.0
	wickJitter      = 0.001
	baseVolume      = 5000.0
)

// ErrAlreadyRunning is returned by Run when the tick loop is already active.
var ErrAlreadyRunning = errors.New("market engine is already running")

// Rand source of uniform draws in [0, 1).
type Rand interface {
	Float64() float64
}

type listing struct {
	instrument domain.Instrument // History is kept in the ring, not here
	history    *ringbuf.Ring[domain.PriceSample]
}

// Engine advances instrument prices and the index on every tick.
// A tick is applied under the write lock, so readers never see a partial update.
type Engine struct {
	mu           sync.RWMutex
	logger       *zap.Logger
	rng          Rand
	now          func() time.Time
	minPrice     float64
	capacity     int
	seedHistory  int
	listings     []*listing
	byID         map[string]*listing
	index        float64
	indexHistory *ringbuf.Ring[domain.IndexPoint]
	seq          uint64
	// updated is the time of the last committed tick, or construction.
	updated time.Time

	running atomic.Bool

	subsMu sync.RWMutex
	subs   []func(domain.MarketSnapshot)
}

// Option configures the Engine.
type Option func(*Engine)

// WithRand sets the random source. Use a seeded source for reproducible runs.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithSeed seeds the default PCG source.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithHistoryCapacity sets how many samples are kept per instrument and for the index.
func WithHistoryCapacity(n int) Option {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithMinPrice sets the price floor.
func WithMinPrice(p float64) Option {
	return func(e *Engine) {
		e.minPrice = p
	}
}

// WithClock sets the time source used for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSeedHistory pre-fills every instrument with n synthetic samples.
// Current prices are left at their base level.
func WithSeedHistory(n int) Option {
	return func(e *Engine) {
		e.seedHistory = n
	}
}

// NewEngine creates an engine over the given instruments. Instruments are copied.
func NewEngine(instruments []domain.Instrument, opts ...Option) (*Engine, error) {
	if len(instruments) == 0 {
		return nil, errors.New("at least one instrument is required")
	}

	e := &Engine{
		logger:   zap.NewNop(),
		now:      time.Now,
		minPrice: DefaultMinPrice,
		capacity: DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if e.capacity < 1 {
		return nil, errors.Errorf("history capacity must be positive, got %d", e.capacity)
	}
	if e.minPrice <= 0 {
		return nil, errors.Errorf("min price must be positive, got %v", e.minPrice)
	}

	e.byID = make(map[string]*listing, len(instruments))
	tickers := make(map[string]struct{}, len(instruments))
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if _, dup := e.byID[inst.ID]; dup {
			return nil, errors.Errorf("duplicate instrument id %s", inst.ID)
		}
		if _, dup := tickers[inst.Ticker]; dup {
			return nil, errors.Errorf("duplicate ticker %s", inst.Ticker)
		}
		tickers[inst.Ticker] = struct{}{}

		l := &listing{instrument: inst.Clone(), history: ringbuf.New[domain.PriceSample](e.capacity)}
		if l.instrument.CurrentPrice <= 0 {
			l.instrument.CurrentPrice = l.instrument.BasePrice
		}
		l.instrument.CurrentPrice = math.Max(l.instrument.CurrentPrice, e.minPrice)
		l.instrument.Change24h = l.instrument.ChangePercent(l.instrument.CurrentPrice)
		for _, s := range inst.History {
			l.history.Push(s)
		}
		l.instrument.History = nil

		e.listings = append(e.listings, l)
		e.byID[inst.ID] = l
	}

	if e.seedHistory > 0 {
		e.seed(e.seedHistory)
	}

	e.indexHistory = ringbuf.New[domain.IndexPoint](e.capacity)
	e.index = e.computeIndex()
	e.updated = e.now()

	return e, nil
}

// Tick advances every instrument by one random-walk step, then recomputes the index.
func (e *Engine) Tick() domain.MarketSnapshot {
	e.mu.Lock()
	now := e.now()
	for _, l := range e.listings {
		e.step(l, now)
	}
	e.index = e.computeIndex()
	e.indexHistory.Push(domain.IndexPoint{Time: now, Value: e.index})
	e.seq++
	e.updated = now
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snapshot)

	return snapshot
}

// step applies one random-walk move to a single instrument. Caller holds the write lock.
func (e *Engine) step(l *listing, now time.Time) {
	inst := &l.instrument

	volatility := float64(inst.Volatility)
	if e.rng.Float64() > spikeThreshold {
		volatility *= spikeMultiplier
	}
	change := (e.rng.Float64() - 0.5) * volatility

	open := inst.CurrentPrice
	price := open * (1 + change)
	if price < e.minPrice {
		price = e.minPrice
	}

	high := math.Max(open, price) * (1 + e.rng.Float64()*wickJitter)
	low := math.Min(open, price) * (1 - e.rng.Float64()*wickJitter)
	volume := int64(math.Floor(e.rng.Float64() * baseVolume * (math.Abs(change)*100 + 1)))

	l.history.Push(domain.PriceSample{
		Time:   now,
		Value:  price,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  price,
		Volume: volume,
	})
	inst.CurrentPrice = price
	inst.Change24h = inst.ChangePercent(price)
}

// seed fills histories with a synthetic walk ending one sample per second before now.
func (e *Engine) seed(n int) {
	now := e.now()
	for _, l := range e.listings {
		price := l.instrument.BasePrice
		vol := float64(l.instrument.Volatility)
		for i := n; i > 0; i-- {
			change := price * (e.rng.Float64() - 0.5) * vol
			open := price
			next := math.Max(price+change, e.minPrice)
			high := math.Max(open, next) + e.rng.Float64()*math.Abs(change)
			low := math.Max(math.Min(open, next)-e.rng.Float64()*math.Abs(change), e.minPrice)
			l.history.Push(domain.PriceSample{
				Time:   now.Add(-time.Duration(i) * time.Second),
				Value:  next,
				Open:   open,
				High:   high,
				Low:    low,
				Close:  next,
				Volume: int64(math.Floor(e.rng.Float64() * 1000)),
			})
			price = next
		}
	}
}

func (e *Engine) computeIndex() float64 {
	var current, base float64
	for _, l := range e.listings {
		current += l.instrument.MarketCap()
		base += l.instrument.BaseMarketCap()
	}
	if base == 0 {
		return IndexBase
	}
	return IndexBase * current / base
}

// Index returns the current index value.
func (e *Engine) Index() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}

// Snapshot returns a deep copy of the current market state.
func (e *Engine) Snapshot() domain.MarketSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() domain.MarketSnapshot {
	instruments := make([]domain.Instrument, len(e.listings))
	for i, l := range e.listings {
		inst := l.instrument
		inst.History = l.history.Slice()
		instruments[i] = inst
	}
	return domain.MarketSnapshot{
		Seq:          e.seq,
		Time:         e.updated,
		Instruments:  instruments,
		Index:        e.index,
		IndexHistory: e.indexHistory.Slice(),
	}
}

// Instrument returns a copy of a single instrument with its history.
func (e *Engine) Instrument(id string) (domain.Instrument, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.byID[id]
	if !ok {
		return domain.Instrument{}, errors.Wrapf(domain.ErrUnknownInstrument, "instrument %s", id)
	}
	inst := l.instrument
	inst.History = l.history.Slice()
	return inst, nil
}

// Price returns the current price of the instrument as a decimal.
func (e *Engine) Price(_ context.Context, id string) (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.byID[id]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrUnknownInstrument, "instrument %s", id)
	}
	return decimal.NewFromFloat(l.instrument.CurrentPrice), nil
}

// Prices returns the current price of every instrument keyed by id.
func (e *Engine) Prices() map[string]decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(e.listings))
	for _, l := range e.listings {
		out[l.instrument.ID] = decimal.NewFromFloat(l.instrument.CurrentPrice)
	}
	return out
}

// OnTick registers fn to be called with each committed snapshot.
// Callbacks run on the ticking goroutine, outside the engine lock.
func (e *Engine) OnTick(fn func(domain.MarketSnapshot)) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify(s domain.MarketSnapshot) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, fn := range e.subs {
		fn(s)
	}
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run ticks every interval until ctx is cancelled. Only one loop may run at a time,
// and ticks never overlap.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("tick interval must be positive, got %s", interval)
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("market simulation started",
		zap.Int("instruments", len(e.listings)),
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("market simulation stopped")
			return ctx.Err()
		case <-ticker.C:
			s := e.Tick()
			e.logger.Debug("market tick", zap.Uint64("seq", s.Seq), zap.Float64("index", s.Index))
		}
	}
}
