package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// FileStore persists the ledger as a single JSON object mapping article to
// last price. Every save is a whole-file overwrite via temp file + rename.
type FileStore struct {
	path string
}

// NewFileStore constructs a FileStore at the given path. The file need not
// exist yet; a missing file loads as an empty ledger.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the ledger file. Prices are decoded through json.Number so the
// on-disk representation stays a plain JSON number.
func (s *FileStore) Load(_ context.Context) (map[string]decimal.Decimal, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]decimal.Decimal), nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	var numbers map[string]json.Number
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, fmt.Errorf("decode ledger file: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(numbers))
	for article, n := range numbers {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, fmt.Errorf("decode ledger price for %q: %w", article, err)
		}
		prices[article] = d
	}
	return prices, nil
}

// Save overwrites the ledger file with the full mapping.
func (s *FileStore) Save(_ context.Context, prices map[string]decimal.Decimal) error {
	numbers := make(map[string]json.RawMessage, len(prices))
	for article, d := range prices {
		numbers[article] = json.RawMessage(d.String())
	}
	raw, err := json.Marshal(numbers)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
