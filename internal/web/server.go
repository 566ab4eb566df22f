// Package web exposes the exchange over a JSON HTTP API with SSE streams.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal"
	"github.com/vadiminshakov/kxmarket/internal/domain"
	"github.com/vadiminshakov/kxmarket/internal/events"
	"github.com/vadiminshakov/kxmarket/internal/storage/tradejournal"
)

const (
	journalPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
)

// DefaultDisplayRate units of EUR per KD.
var DefaultDisplayRate = decimal.NewFromFloat(0.92)

type exchange interface {
	Snapshot() domain.MarketSnapshot
	Instrument(id string) (domain.Instrument, error)
	Trade(ctx context.Context, side domain.Side, instrumentID string, amount int64) (domain.Transaction, error)
	Portfolio(ctx context.Context) (internal.Portfolio, error)
	MarketEvents() *events.Broadcaster[domain.MarketSnapshot]
}

type tradeReader interface {
	TransactionsAfter(index uint64) ([]tradejournal.Record, error)
}

// Server serves the exchange API.
type Server struct {
	Addr        string
	Exchange    exchange
	Journal     tradeReader
	Metrics     http.Handler
	DisplayRate decimal.Decimal

	logger       *zap.Logger
	pollInterval time.Duration
}

// NewServer creates a new web server instance. journal and metrics may be nil.
func NewServer(addr string, x exchange, journal tradeReader, metrics http.Handler, displayRate decimal.Decimal, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if displayRate.LessThanOrEqual(decimal.Zero) {
		displayRate = DefaultDisplayRate
	}
	return &Server{
		Addr:         addr,
		Exchange:     x,
		Journal:      journal,
		Metrics:      metrics,
		DisplayRate:  displayRate,
		logger:       logger,
		pollInterval: journalPollInterval,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/market", s.handleMarket)
	mux.HandleFunc("GET /api/market/stream", s.handleMarketStream)
	mux.HandleFunc("GET /api/instruments/{id}", s.handleInstrument)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("POST /api/orders", s.handleOrder)
	mux.HandleFunc("GET /api/trades/stream", s.handleTradeStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server")
	}
	return nil
}

func (s *Server) converter(r *http.Request) (domain.Converter, error) {
	currency, err := domain.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		return domain.Converter{}, err
	}
	return domain.NewConverter(currency, s.DisplayRate), nil
}
