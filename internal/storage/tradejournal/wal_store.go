// Package tradejournal keeps an append-only log of executed trades in a WAL
// so trade streams can be replayed from any index.
package tradejournal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

const (
	defaultJournalDir   = "./wal/trades"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	journalKeyPrefix    = "trade_"
)

// Record transaction with its WAL index.
type Record struct {
	Index       uint64             `json:"index"`
	Transaction domain.Transaction `json:"transaction"`
}

// WALStore persists executed transactions in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens or creates the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trades_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes tx at the next index.
func (s *WALStore) Append(tx domain.Transaction) error {
	if s == nil || s.wal == nil {
		return errors.New("trade journal is not initialized")
	}
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal transaction")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, journalKeyPrefix+tx.ID, payload)
}

// TransactionsAfter returns every transaction written after index, oldest first.
func (s *WALStore) TransactionsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, journalKeyPrefix) {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, errors.Wrapf(err, "decode transaction at %d", idx)
		}
		records = append(records, Record{Index: idx, Transaction: tx})
	}

	return records, nil
}

// CurrentIndex returns the latest written index.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("trade journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
