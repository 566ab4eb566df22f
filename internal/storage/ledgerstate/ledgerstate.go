// Package ledgerstate keeps the serialized ledger state in a single
// key-value slot, either a local JSON file or a redis key.
package ledgerstate

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// Key fixed slot name the ledger state lives under.
const Key = "kx_user"

// Encode serializes the state. Decimals are written as strings.
func Encode(state domain.LedgerState) ([]byte, error) {
	if state.Positions == nil {
		state.Positions = []domain.Position{}
	}
	if state.Transactions == nil {
		state.Transactions = []domain.Transaction{}
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode ledger state")
	}
	return payload, nil
}

// Decode parses a serialized state. Empty payload yields nil state.
func Decode(payload []byte) (*domain.LedgerState, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var state domain.LedgerState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode ledger state")
	}
	return &state, nil
}
