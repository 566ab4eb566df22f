package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/kxmarket/internal/domain"
	"github.com/vadiminshakov/kxmarket/internal/services/ledger"
	"github.com/vadiminshakov/kxmarket/pkg/indicators"
)

type marketResponse struct {
	Currency     domain.Currency     `json:"currency"`
	Seq          uint64              `json:"seq"`
	Time         time.Time           `json:"time"`
	Index        float64             `json:"index"`
	IndexHistory []domain.IndexPoint `json:"indexHistory"`
	Instruments  []domain.Instrument `json:"instruments"`
}

type instrumentResponse struct {
	Currency   domain.Currency    `json:"currency"`
	Instrument domain.Instrument  `json:"instrument"`
	MarketCap  float64            `json:"marketCap"`
	Indicators indicators.Summary `json:"indicators"`
}

type portfolioResponse struct {
	Currency  domain.Currency    `json:"currency"`
	State     domain.LedgerState `json:"state"`
	Valuation ledger.Valuation   `json:"valuation"`
}

type orderRequest struct {
	InstrumentID string `json:"instrumentId"`
	Side         string `json:"side"`
	Amount       int64  `json:"amount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	conv, err := s.converter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_currency", err)
		return
	}
	s.writeJSON(w, http.StatusOK, newMarketResponse(s.Exchange.Snapshot(), conv))
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	conv, err := s.converter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_currency", err)
		return
	}

	inst, err := s.Exchange.Instrument(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownInstrument) {
			s.writeError(w, http.StatusNotFound, domain.ReasonUnknownInstrument, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, domain.ReasonInternal, err)
		return
	}

	converted := convertInstrument(inst, conv)
	s.writeJSON(w, http.StatusOK, instrumentResponse{
		Currency:   conv.Currency,
		Instrument: converted,
		MarketCap:  converted.MarketCap(),
		Indicators: indicators.Summarize(converted.History),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	conv, err := s.converter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_currency", err)
		return
	}

	p, err := s.Exchange.Portfolio(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, domain.ReasonInternal, err)
		return
	}

	s.writeJSON(w, http.StatusOK, portfolioResponse{
		Currency:  conv.Currency,
		State:     p.State,
		Valuation: p.Valuation.Convert(conv),
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_request", errors.Wrap(err, "decode order"))
		return
	}

	side, err := domain.ParseSide(strings.ToUpper(strings.TrimSpace(req.Side)))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	tx, err := s.Exchange.Trade(r.Context(), side, req.InstrumentID, req.Amount)
	if err != nil {
		reason := domain.ReasonOf(err)
		if reason == domain.ReasonInternal {
			s.writeError(w, http.StatusInternalServerError, reason, err)
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, reason, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tx)
}

func newMarketResponse(snap domain.MarketSnapshot, conv domain.Converter) marketResponse {
	instruments := make([]domain.Instrument, len(snap.Instruments))
	for i, inst := range snap.Instruments {
		instruments[i] = convertInstrument(inst, conv)
	}
	history := snap.IndexHistory
	if history == nil {
		history = []domain.IndexPoint{}
	}
	return marketResponse{
		Currency:     conv.Currency,
		Seq:          snap.Seq,
		Time:         snap.Time,
		Index:        snap.Index,
		IndexHistory: history,
		Instruments:  instruments,
	}
}

// convertInstrument rescales every price field; change24h is a ratio and stays.
func convertInstrument(inst domain.Instrument, conv domain.Converter) domain.Instrument {
	out := inst.Clone()
	out.BasePrice = conv.Price(inst.BasePrice)
	out.CurrentPrice = conv.Price(inst.CurrentPrice)
	if out.History == nil {
		out.History = []domain.PriceSample{}
	}
	for i := range out.History {
		h := &out.History[i]
		h.Value = conv.Price(h.Value)
		h.Open = conv.Price(h.Open)
		h.High = conv.Price(h.High)
		h.Low = conv.Price(h.Low)
		h.Close = conv.Price(h.Close)
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}
