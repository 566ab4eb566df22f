package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// scriptedRand returns queued draws, then falls back to a fixed value.
type scriptedRand struct {
	mu       sync.Mutex
	draws    []float64
	fallback float64
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.draws) == 0 {
		return r.fallback
	}
	v := r.draws[0]
	r.draws = r.draws[1:]
	return v
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func instrumentA() domain.Instrument {
	return domain.Instrument{
		ID:                "A",
		Ticker:            "AAA",
		Volatility:        domain.VolatilityHigh,
		BasePrice:         72.50,
		CurrentPrice:      72.50,
		SharesOutstanding: 5_000_000,
	}
}

func instrumentB() domain.Instrument {
	return domain.Instrument{
		ID:                "B",
		Ticker:            "BBB",
		Volatility:        domain.VolatilityLow,
		BasePrice:         120,
		CurrentPrice:      120,
		SharesOutstanding: 3_000_000,
	}
}

func TestEngine_IndexAtInit(t *testing.T) {
	e, err := NewEngine(domain.DefaultInstruments(), WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, IndexBase, e.Index())

	snap := e.Snapshot()
	assert.Equal(t, uint64(0), snap.Seq)
	assert.Empty(t, snap.IndexHistory)
	assert.Len(t, snap.Instruments, 16)
	for _, inst := range snap.Instruments {
		assert.Equal(t, inst.BasePrice, inst.CurrentPrice, inst.Ticker)
		assert.Zero(t, inst.Change24h, inst.Ticker)
	}
}

func TestEngine_TickScenario(t *testing.T) {
	// spike draw 0.5 (no spike), change draw 0.9 => (0.9-0.5)*0.025 = 0.01
	rng := &scriptedRand{draws: []float64{0.5, 0.9, 0.5, 0.5, 0.5}}
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithRand(rng))
	require.NoError(t, err)

	snap := e.Tick()
	inst, ok := snap.Find("A")
	require.True(t, ok)

	assert.InDelta(t, 73.225, inst.CurrentPrice, 1e-9)
	assert.InDelta(t, 1.0, inst.Change24h, 1e-9)

	require.Len(t, inst.History, 1)
	sample := inst.History[0]
	assert.Equal(t, 72.50, sample.Open)
	assert.InDelta(t, 73.225, sample.Close, 1e-9)
	assert.Equal(t, sample.Close, sample.Value)
	assert.InDelta(t, 73.225*1.0005, sample.High, 1e-9)
	assert.InDelta(t, 72.50*0.9995, sample.Low, 1e-9)
	// floor(0.5 * 5000 * (0.01*100 + 1)), give or take float rounding
	assert.InDelta(t, 5000, float64(sample.Volume), 1)

	assert.InDelta(t, 1010.0, snap.Index, 1e-9)
	require.Len(t, snap.IndexHistory, 1)
	assert.InDelta(t, 1010.0, snap.IndexHistory[0].Value, 1e-9)
}

func TestEngine_VolatilitySpike(t *testing.T) {
	// spike draw 0.95 triples volatility: (1.0-0.5)*0.025*3 = 0.0375
	rng := &scriptedRand{draws: []float64{0.95, 1.0, 0, 0, 0}}
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithRand(rng))
	require.NoError(t, err)

	snap := e.Tick()
	assert.InDelta(t, 72.50*1.0375, snap.Instruments[0].CurrentPrice, 1e-9)
}

func TestEngine_PriceFloor(t *testing.T) {
	inst := domain.Instrument{
		ID:                "P",
		Ticker:            "PENNY",
		Volatility:        5,
		BasePrice:         0.2,
		SharesOutstanding: 100,
	}
	// spike + lowest change draw: (0-0.5)*5*3 = -7.5, price would go negative
	rng := &scriptedRand{draws: []float64{0.99, 0}, fallback: 0}
	e, err := NewEngine([]domain.Instrument{inst}, WithRand(rng))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		snap := e.Tick()
		assert.Equal(t, DefaultMinPrice, snap.Instruments[0].CurrentPrice)
	}
}

func TestEngine_InvariantsUnderRandomWalk(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	e, err := NewEngine(domain.DefaultInstruments(), WithSeed(42), WithClock(clock.now))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		snap := e.Tick()
		require.LessOrEqual(t, len(snap.IndexHistory), DefaultHistoryCapacity)
		for _, inst := range snap.Instruments {
			require.GreaterOrEqual(t, inst.CurrentPrice, DefaultMinPrice)
			require.LessOrEqual(t, len(inst.History), DefaultHistoryCapacity)
			last := inst.History[len(inst.History)-1]
			require.Equal(t, inst.CurrentPrice, last.Close)
			require.GreaterOrEqual(t, last.High, last.Open)
			require.GreaterOrEqual(t, last.High, last.Close)
			require.LessOrEqual(t, last.Low, last.Open)
			require.LessOrEqual(t, last.Low, last.Close)
			require.GreaterOrEqual(t, last.Volume, int64(0))
			for j := 1; j < len(inst.History); j++ {
				require.True(t, inst.History[j-1].Time.Before(inst.History[j].Time))
			}
		}
	}
}

func TestEngine_HistoryEvictsOldest(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(7), WithClock(clock.now), WithHistoryCapacity(5))
	require.NoError(t, err)

	var opens []float64
	for i := 0; i < 8; i++ {
		before, err := e.Instrument("A")
		require.NoError(t, err)
		opens = append(opens, before.CurrentPrice)
		e.Tick()
	}

	inst, err := e.Instrument("A")
	require.NoError(t, err)
	require.Len(t, inst.History, 5)
	for i, s := range inst.History {
		assert.Equal(t, opens[3+i], s.Open)
	}

	snap := e.Snapshot()
	assert.Len(t, snap.IndexHistory, 5)
}

func TestEngine_IndexIsCapWeighted(t *testing.T) {
	// A: +1% (draws 0.5, 0.9), B: unchanged (draws 0.5, 0.5)
	rng := &scriptedRand{draws: []float64{0.5, 0.9, 0, 0, 0, 0.5, 0.5, 0, 0, 0}}
	e, err := NewEngine([]domain.Instrument{instrumentA(), instrumentB()}, WithRand(rng))
	require.NoError(t, err)

	snap := e.Tick()

	capA := 72.50 * 5_000_000.0
	capB := 120.0 * 3_000_000.0
	expected := 1000 * (capA*1.01 + capB) / (capA + capB)
	assert.InDelta(t, expected, snap.Index, 1e-9)
	assert.InDelta(t, expected, e.Index(), 1e-9)
}

func TestEngine_SeedHistory(t *testing.T) {
	e, err := NewEngine(domain.DefaultInstruments(), WithSeed(3), WithSeedHistory(50))
	require.NoError(t, err)

	assert.Equal(t, IndexBase, e.Index())
	for _, inst := range e.Snapshot().Instruments {
		assert.Len(t, inst.History, 50)
		assert.Equal(t, inst.BasePrice, inst.CurrentPrice)
		for _, s := range inst.History {
			assert.GreaterOrEqual(t, s.Close, DefaultMinPrice)
		}
	}
}

func TestEngine_SnapshotIsIsolated(t *testing.T) {
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(5))
	require.NoError(t, err)
	e.Tick()

	snap := e.Snapshot()
	snap.Instruments[0].History[0].Close = -1
	snap.Instruments[0].CurrentPrice = -1

	inst, err := e.Instrument("A")
	require.NoError(t, err)
	assert.Greater(t, inst.History[0].Close, 0.0)
	assert.Greater(t, inst.CurrentPrice, 0.0)
}

func TestEngine_Price(t *testing.T) {
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(1))
	require.NoError(t, err)

	price, err := e.Price(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "72.5", price.String())

	_, err = e.Price(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrUnknownInstrument))

	_, err = e.Instrument("missing")
	assert.True(t, errors.Is(err, domain.ErrUnknownInstrument))

	prices := e.Prices()
	require.Contains(t, prices, "A")
	assert.True(t, prices["A"].Equal(price))
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name        string
		instruments []domain.Instrument
		opts        []Option
	}{
		{name: "empty", instruments: nil},
		{name: "duplicate id", instruments: []domain.Instrument{instrumentA(), instrumentA()}},
		{name: "duplicate ticker", instruments: func() []domain.Instrument {
			b := instrumentB()
			b.Ticker = "AAA"
			return []domain.Instrument{instrumentA(), b}
		}()},
		{name: "zero base price", instruments: func() []domain.Instrument {
			a := instrumentA()
			a.BasePrice = 0
			return []domain.Instrument{a}
		}()},
		{name: "zero capacity", instruments: []domain.Instrument{instrumentA()}, opts: []Option{WithHistoryCapacity(0)}},
		{name: "zero floor", instruments: []domain.Instrument{instrumentA()}, opts: []Option{WithMinPrice(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.instruments, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestEngine_OnTick(t *testing.T) {
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(9))
	require.NoError(t, err)

	var got []uint64
	e.OnTick(func(s domain.MarketSnapshot) {
		got = append(got, s.Seq)
	})

	e.Tick()
	e.Tick()

	assert.Equal(t, []uint64{1, 2}, got)
}

func TestEngine_Run(t *testing.T) {
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(11))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, e.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, e.Run(ctx, 5*time.Millisecond), ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		return e.Snapshot().Seq >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	assert.False(t, e.Running())
}

func TestEngine_RunRejectsBadInterval(t *testing.T) {
	e, err := NewEngine([]domain.Instrument{instrumentA()}, WithSeed(1))
	require.NoError(t, err)

	assert.Error(t, e.Run(context.Background(), 0))
	assert.False(t, e.Running())
}

func TestEngine_SnapshotTimeMatchesTick(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	e, err := NewEngine([]domain.Instrument{instrumentA(), instrumentB()}, WithSeed(9), WithClock(clock.now))
	require.NoError(t, err)

	snap := e.Tick()
	require.Len(t, snap.IndexHistory, 1)
	assert.Equal(t, snap.IndexHistory[0].Time, snap.Time)
	for _, inst := range snap.Instruments {
		assert.Equal(t, snap.Time, inst.History[len(inst.History)-1].Time)
	}

	// reads between ticks report the last tick, not the read time
	later := e.Snapshot()
	assert.Equal(t, snap.Time, later.Time)
}
