package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, 60, cfg.HistoryCapacity)
	assert.Equal(t, 0.1, cfg.MinPrice)
	assert.True(t, cfg.InitialBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.FeeRate.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, cfg.DisplayRate.Equal(decimal.RequireFromString("0.92")))
	assert.Equal(t, 51, cfg.SeedHistory)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Len(t, cfg.Instruments, 16)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	yml := `
tick_interval: 500ms
history_capacity: 30
seed: 42
seed_history: 0
initial_balance: "2500.50"
fee_rate: "0.002"
storage: Redis
redis_addr: "redis:6379"
redis_db: 2
web_addr: ":9090"
instruments:
  - id: "A"
    ticker: AAA
    name: Alpha
    volatility: 0.01
    base_price: 12.5
    shares_outstanding: 1000
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 30, cfg.HistoryCapacity)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 0, cfg.SeedHistory)
	assert.True(t, cfg.InitialBalance.Equal(decimal.RequireFromString("2500.5")))
	assert.True(t, cfg.FeeRate.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, ":9090", cfg.WebAddr)
	assert.True(t, cfg.DisplayRate.Equal(decimal.RequireFromString("0.92")))

	require.Len(t, cfg.Instruments, 1)
	inst := cfg.Instruments[0]
	assert.Equal(t, "AAA", inst.Ticker)
	assert.Equal(t, domain.Volatility(0.01), inst.Volatility)
	assert.Equal(t, 12.5, inst.CurrentPrice)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad decimal", `initial_balance: "lots"`},
		{"bad storage", `storage: postgres`},
		{"negative fee", `fee_rate: "-0.1"`},
		{"seed history beyond capacity", "history_capacity: 10\nseed_history: 11"},
		{"invalid instrument", "instruments:\n  - id: \"A\"\n    ticker: AAA"},
		{"not yaml", "[unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yml))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kx.yaml")
	want := Default()
	want.Seed = 7
	want.SeedHistory = 0
	want.Storage = StorageRedis

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Seed, got.Seed)
	assert.Equal(t, 0, got.SeedHistory)
	assert.Equal(t, want.Storage, got.Storage)
	assert.Equal(t, want.TickInterval, got.TickInterval)
	assert.True(t, want.FeeRate.Equal(got.FeeRate))
	assert.Len(t, got.Instruments, 16)
}

func TestGet(t *testing.T) {
	f, cfg, err := Get(nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, f.ConfigPath)
	assert.False(t, f.Setup)
	assert.Equal(t, ":8080", cfg.WebAddr)

	path := filepath.Join(t.TempDir(), "kx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web_addr: \":7000\"\n"), 0o644))

	f, cfg, err = Get([]string{"--config", path, "--setup"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, path, f.ConfigPath)
	assert.True(t, f.Setup)
	assert.Equal(t, ":7000", cfg.WebAddr)

	_, _, err = Get([]string{"--unknown"}, io.Discard)
	assert.Error(t, err)

	_, _, err = Get([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	assert.Error(t, err)
}
