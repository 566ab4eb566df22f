package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

func TestMetrics_ObserveTick(t *testing.T) {
	m := New()
	m.ObserveTick(domain.MarketSnapshot{
		Index: 1010,
		Instruments: []domain.Instrument{
			{Ticker: "SIMBA", CurrentPrice: 73.225},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, 1010.0, testutil.ToFloat64(m.IndexValue))
	assert.Equal(t, 73.225, testutil.ToFloat64(m.InstrumentPrice.WithLabelValues("SIMBA")))
}

func TestMetrics_Trades(t *testing.T) {
	m := New()
	m.ObserveTrade(domain.SideBuy, 0.725, 9274.275)
	m.ObserveReject(domain.SideSell, domain.ReasonInsufficientHoldings)
	m.ObserveDrops("market", 0)
	m.ObserveDrops("market", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("BUY")))
	assert.Equal(t, 0.725, testutil.ToFloat64(m.FeesCollected))
	assert.Equal(t, 9274.275, testutil.ToFloat64(m.CashBalance))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectsTotal.WithLabelValues("SELL", "insufficient_holdings")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamDrops.WithLabelValues("market")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTrade(domain.SideBuy, 1, 100)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `kx_trades_total{side="BUY"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
