package ledgerstate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

const defaultStateDir = "./wal/kx"

// StateDir returns the directory for the state file, honouring KX_STATE_DIR.
func StateDir(configured string) string {
	if dir := os.Getenv("KX_STATE_DIR"); dir != "" {
		return dir
	}
	if configured != "" {
		return configured
	}
	return defaultStateDir
}

// FileStore persists the ledger state to <dir>/kx_user.json so restarts keep the account.
type FileStore struct {
	path string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = defaultStateDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create ledger state dir")
	}

	return &FileStore{path: filepath.Join(dir, Key+".json")}, nil
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger state from disk. Returns nil state when the file is absent.
func (s *FileStore) Load(_ context.Context) (*domain.LedgerState, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read ledger state")
	}

	return Decode(payload)
}

// Save writes the ledger state atomically via temp file.
func (s *FileStore) Save(_ context.Context, state domain.LedgerState) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := Encode(state)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write ledger state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist ledger state")
	}

	return nil
}
