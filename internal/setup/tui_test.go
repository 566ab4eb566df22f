package setup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/kxmarket/config"
)

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := buildConfig(defaultAnswers())
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.TickInterval, cfg.TickInterval)
	assert.True(t, def.InitialBalance.Equal(cfg.InitialBalance))
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Zero(t, cfg.Seed)
}

func TestBuildConfig_Custom(t *testing.T) {
	a := defaultAnswers()
	a.tickInterval = "750ms"
	a.seed = "99"
	a.initialBalance = "5000"
	a.storage = config.StorageRedis
	a.redisAddr = "cache:6379"

	cfg, err := buildConfig(a)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.True(t, cfg.InitialBalance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestBuildConfig_Invalid(t *testing.T) {
	a := defaultAnswers()
	a.tickInterval = "soon"
	_, err := buildConfig(a)
	assert.Error(t, err)

	a = defaultAnswers()
	a.feeRate = "2"
	_, err = buildConfig(a)
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateInterval("2s"))
	assert.Error(t, validateInterval("1ms"))
	assert.Error(t, validateInterval("x"))

	assert.NoError(t, validateSeed("0"))
	assert.Error(t, validateSeed("-1"))

	assert.NoError(t, validatePositiveDecimal("10000"))
	assert.Error(t, validatePositiveDecimal("0"))
	assert.Error(t, validatePositiveDecimal("abc"))

	assert.NoError(t, validateFeeRate("0"))
	assert.NoError(t, validateFeeRate("0.001"))
	assert.Error(t, validateFeeRate("1"))

	assert.NoError(t, validateNotEmpty(":8080"))
	assert.Error(t, validateNotEmpty("  "))
}
