package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return flusher, true
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
	return nil
}

// handleMarketStream pushes the current snapshot, then one event per tick.
func (s *Server) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	conv, err := s.converter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_currency", err)
		return
	}

	broadcaster := s.Exchange.MarketEvents()
	ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(ch)

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	if err := writeEvent(w, flusher, "tick", newMarketResponse(s.Exchange.Snapshot(), conv)); err != nil {
		s.logger.Warn("market stream initial snapshot", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, flusher, "tick", newMarketResponse(snap, conv)); err != nil {
				s.logger.Warn("market stream write", zap.Error(err))
				return
			}
		}
	}
}

// handleTradeStream replays the trade journal after ?after=<index> and then
// polls it for new entries.
func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "trade journal not available")
		return
	}

	lastIndex := uint64(0)
	if after := r.URL.Query().Get("after"); after != "" {
		parsed, err := strconv.ParseUint(after, 10, 64)
		if err != nil {
			http.Error(w, "invalid after index", http.StatusBadRequest)
			return
		}
		lastIndex = parsed
	}

	sendTrades := func(flusher http.Flusher) error {
		records, err := s.Journal.TransactionsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := writeEvent(w, flusher, "trade", record); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		return nil
	}

	// fail before committing to the event-stream response
	if _, err := s.Journal.TransactionsAfter(lastIndex); err != nil {
		http.Error(w, "failed to load trades", http.StatusInternalServerError)
		s.logger.Warn("trade stream initial load", zap.Error(err))
		return
	}

	flusher, ok := startStream(w)
	if !ok {
		return
	}
	if err := sendTrades(flusher); err != nil {
		s.logger.Warn("trade stream initial replay", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendTrades(flusher); err != nil {
				s.logger.Warn("trade stream poll", zap.Error(err))
			}
		}
	}
}
