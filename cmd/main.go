// Command kxmarket runs the simulated stock exchange: a random-walk price
// engine, a cash ledger and the HTTP API in front of them.
//
// Usage:
//
//	kxmarket                      (built-in defaults)
//	kxmarket --config kx.yaml
//	kxmarket --setup [--config kx.yaml]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/kxmarket/config"
	"github.com/vadiminshakov/kxmarket/internal"
	"github.com/vadiminshakov/kxmarket/internal/metrics"
	"github.com/vadiminshakov/kxmarket/internal/services/ledger"
	"github.com/vadiminshakov/kxmarket/internal/services/market"
	"github.com/vadiminshakov/kxmarket/internal/setup"
	"github.com/vadiminshakov/kxmarket/internal/storage/ledgerstate"
	"github.com/vadiminshakov/kxmarket/internal/storage/tradejournal"
	"github.com/vadiminshakov/kxmarket/internal/web"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, setup.ErrCancelled) {
			fmt.Println("Setup cancelled.")
			return
		}
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("exchange stopped", zap.Error(err))
	}
	logger.Info("exchange stopped")
}

func loadConfig(args []string) (config.Config, error) {
	flags, err := config.ParseFlags(args, os.Stderr)
	if err != nil {
		return config.Config{}, err
	}
	if flags.Setup {
		path, err := setup.RunTUI(flags.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		return config.Load(path)
	}
	_, cfg, err := config.Get(args, os.Stderr)
	return cfg, err
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	engineOpts := []market.Option{
		market.WithLogger(logger),
		market.WithHistoryCapacity(cfg.HistoryCapacity),
		market.WithMinPrice(cfg.MinPrice),
		market.WithSeedHistory(cfg.SeedHistory),
	}
	if cfg.Seed != 0 {
		engineOpts = append(engineOpts, market.WithSeed(cfg.Seed))
	}
	engine, err := market.NewEngine(cfg.Instruments, engineOpts...)
	if err != nil {
		return errors.Wrap(err, "create market engine")
	}

	store, closeStore, err := newStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	journal, err := tradejournal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return errors.Wrap(err, "open trade journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Warn("failed to close trade journal", zap.Error(err))
		}
	}()

	lg, err := ledger.New(ctx, engine, store,
		ledger.WithLogger(logger),
		ledger.WithFeeRate(cfg.FeeRate),
		ledger.WithInitialBalance(cfg.InitialBalance),
		ledger.WithJournal(journal),
	)
	if err != nil {
		return errors.Wrap(err, "create ledger")
	}

	m := metrics.New()
	x, err := internal.NewExchange(engine, lg,
		internal.WithLogger(logger),
		internal.WithMetrics(m),
		internal.WithTickInterval(cfg.TickInterval),
	)
	if err != nil {
		return errors.Wrap(err, "create exchange")
	}

	server := web.NewServer(cfg.WebAddr, x, journal, m.Handler(), cfg.DisplayRate, logger)

	logger.Info("opening the market",
		zap.Int("instruments", len(cfg.Instruments)),
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.String("storage", cfg.Storage),
		zap.String("web_addr", cfg.WebAddr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := x.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	return g.Wait()
}

func newStateStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ledger.StateStore, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		store, err := ledgerstate.NewRedisStore(ctx, ledgerstate.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger, nil)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close redis store", zap.Error(err))
			}
		}, nil
	default:
		store, err := ledgerstate.NewFileStore(ledgerstate.StateDir(cfg.StateDir))
		if err != nil {
			return nil, nil, errors.Wrap(err, "open ledger state file")
		}
		logger.Info("ledger state file", zap.String("path", store.Path()))
		return store, func() {}, nil
	}
}
