// Package config loads exchange settings from a YAML file and command-line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// Storage backends for the ledger state slot.
const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

const (
	defaultTickInterval    = 2 * time.Second
	defaultHistoryCapacity = 60
	defaultMinPrice        = 0.1
	defaultSeedHistory     = 51
	defaultWebAddr         = ":8080"
	defaultStateDir        = "./wal/kx"
	defaultJournalDir      = "./wal/trades"
	defaultRedisAddr       = "localhost:6379"
)

var (
	defaultInitialBalance = decimal.NewFromInt(10000)
	defaultFeeRate        = decimal.NewFromFloat(0.001)
	defaultDisplayRate    = decimal.NewFromFloat(0.92)
)

// Config runtime settings of the exchange.
type Config struct {
	TickInterval    time.Duration
	HistoryCapacity int
	MinPrice        float64
	InitialBalance  decimal.Decimal
	FeeRate         decimal.Decimal
	// Seed of the price simulation; 0 seeds from the clock.
	Seed        uint64
	SeedHistory int
	WebAddr     string
	Storage     string
	StateDir    string
	JournalDir  string
	Redis       RedisConfig
	DisplayRate decimal.Decimal
	Debug       bool
	Instruments []domain.Instrument
}

// RedisConfig redis connection used when Storage is "redis".
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ConfigTmp mirrors the YAML file. Money fields are strings to keep them exact.
type ConfigTmp struct {
	TickInterval    time.Duration       `yaml:"tick_interval,omitempty"`
	HistoryCapacity int                 `yaml:"history_capacity,omitempty"`
	MinPrice        float64             `yaml:"min_price,omitempty"`
	InitialBalance  string              `yaml:"initial_balance,omitempty"`
	FeeRate         string              `yaml:"fee_rate,omitempty"`
	Seed            uint64              `yaml:"seed,omitempty"`
	SeedHistory     *int                `yaml:"seed_history,omitempty"`
	WebAddr         string              `yaml:"web_addr,omitempty"`
	Storage         string              `yaml:"storage,omitempty"`
	StateDir        string              `yaml:"state_dir,omitempty"`
	JournalDir      string              `yaml:"journal_dir,omitempty"`
	RedisAddr       string              `yaml:"redis_addr,omitempty"`
	RedisPassword   string              `yaml:"redis_password,omitempty"`
	RedisDB         int                 `yaml:"redis_db,omitempty"`
	DisplayRate     string              `yaml:"display_rate,omitempty"`
	Debug           bool                `yaml:"debug,omitempty"`
	Instruments     []domain.Instrument `yaml:"instruments,omitempty"`
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		TickInterval:    defaultTickInterval,
		HistoryCapacity: defaultHistoryCapacity,
		MinPrice:        defaultMinPrice,
		InitialBalance:  defaultInitialBalance,
		FeeRate:         defaultFeeRate,
		SeedHistory:     defaultSeedHistory,
		WebAddr:         defaultWebAddr,
		Storage:         StorageFile,
		StateDir:        defaultStateDir,
		JournalDir:      defaultJournalDir,
		Redis:           RedisConfig{Addr: defaultRedisAddr},
		DisplayRate:     defaultDisplayRate,
		Instruments:     domain.DefaultInstruments(),
	}
}

// Load reads a YAML config file. Missing fields keep their defaults.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(f)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}
	return tmp.toConfig()
}

func (c ConfigTmp) toConfig() (Config, error) {
	cfg := Default()

	if c.TickInterval != 0 {
		cfg.TickInterval = c.TickInterval
	}
	if c.HistoryCapacity != 0 {
		cfg.HistoryCapacity = c.HistoryCapacity
	}
	if c.MinPrice != 0 {
		cfg.MinPrice = c.MinPrice
	}
	if c.SeedHistory != nil {
		cfg.SeedHistory = *c.SeedHistory
	}
	cfg.Seed = c.Seed
	cfg.Debug = c.Debug

	var err error
	if cfg.InitialBalance, err = decimalOr(c.InitialBalance, cfg.InitialBalance, "initial_balance"); err != nil {
		return Config{}, err
	}
	if cfg.FeeRate, err = decimalOr(c.FeeRate, cfg.FeeRate, "fee_rate"); err != nil {
		return Config{}, err
	}
	if cfg.DisplayRate, err = decimalOr(c.DisplayRate, cfg.DisplayRate, "display_rate"); err != nil {
		return Config{}, err
	}

	if c.WebAddr != "" {
		cfg.WebAddr = c.WebAddr
	}
	if c.Storage != "" {
		cfg.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	}
	if c.StateDir != "" {
		cfg.StateDir = c.StateDir
	}
	if c.JournalDir != "" {
		cfg.JournalDir = c.JournalDir
	}
	if c.RedisAddr != "" {
		cfg.Redis.Addr = c.RedisAddr
	}
	cfg.Redis.Password = c.RedisPassword
	cfg.Redis.DB = c.RedisDB

	if len(c.Instruments) > 0 {
		cfg.Instruments = make([]domain.Instrument, len(c.Instruments))
		for i, inst := range c.Instruments {
			inst.CurrentPrice = inst.BasePrice
			cfg.Instruments[i] = inst
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.Errorf("incorrect 'tick_interval' param in yaml config: %s", c.TickInterval)
	}
	if c.HistoryCapacity < 1 {
		return errors.Errorf("incorrect 'history_capacity' param in yaml config: %d", c.HistoryCapacity)
	}
	if c.MinPrice <= 0 {
		return errors.Errorf("incorrect 'min_price' param in yaml config: %v", c.MinPrice)
	}
	if c.SeedHistory < 0 || c.SeedHistory > c.HistoryCapacity {
		return errors.Errorf("incorrect 'seed_history' param in yaml config: %d (max %d)", c.SeedHistory, c.HistoryCapacity)
	}
	if c.InitialBalance.IsNegative() {
		return errors.Errorf("incorrect 'initial_balance' param in yaml config: %s", c.InitialBalance)
	}
	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Errorf("incorrect 'fee_rate' param in yaml config: %s", c.FeeRate)
	}
	if !c.DisplayRate.IsPositive() {
		return errors.Errorf("incorrect 'display_rate' param in yaml config: %s", c.DisplayRate)
	}
	switch c.Storage {
	case StorageFile, StorageRedis:
	default:
		return errors.Errorf("incorrect 'storage' param in yaml config: %q (use file or redis)", c.Storage)
	}
	for i := range c.Instruments {
		if err := c.Instruments[i].Validate(); err != nil {
			return errors.Wrap(err, "incorrect 'instruments' param in yaml config")
		}
	}
	return nil
}

// Raw converts the config back into its YAML form.
func (c Config) Raw() ConfigTmp {
	seedHistory := c.SeedHistory
	return ConfigTmp{
		TickInterval:    c.TickInterval,
		HistoryCapacity: c.HistoryCapacity,
		MinPrice:        c.MinPrice,
		InitialBalance:  c.InitialBalance.String(),
		FeeRate:         c.FeeRate.String(),
		Seed:            c.Seed,
		SeedHistory:     &seedHistory,
		WebAddr:         c.WebAddr,
		Storage:         c.Storage,
		StateDir:        c.StateDir,
		JournalDir:      c.JournalDir,
		RedisAddr:       c.Redis.Addr,
		RedisPassword:   c.Redis.Password,
		RedisDB:         c.Redis.DB,
		DisplayRate:     c.DisplayRate.String(),
		Debug:           c.Debug,
	}
}

// Save writes the config as YAML. Instruments are omitted so the built-in catalog applies.
func Save(path string, c Config) error {
	payload, err := yaml.Marshal(c.Raw())
	if err != nil {
		return errors.Wrap(err, "encode yaml config")
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

func decimalOr(raw string, fallback decimal.Decimal, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "incorrect '%s' param in yaml config (must be a decimal)", field)
	}
	return d, nil
}
