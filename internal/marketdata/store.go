package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/calendar"
)

// Store persists price records keyed exactly by (symbol, trading day).
// Entries never expire; Put overwrites, Invalidate removes.
type Store interface {
	// Get returns the record for the exact key. It never touches the network.
	Get(ctx context.Context, symbol string, day calendar.TradingDay) (PriceRecord, bool, error)

	// Put stores rec under rec.Key(), replacing any previous entry.
	Put(ctx context.Context, rec PriceRecord) error

	// Invalidate removes the entry for the exact key. Missing keys are not an error.
	Invalidate(ctx context.Context, symbol string, day calendar.TradingDay) error

	// List returns all cached keys, sorted.
	List(ctx context.Context) ([]Key, error)

	Close() error
}

// Store backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StoreConfig selects and locates a backend.
type StoreConfig struct {
	Backend    string
	Dir        string
	BadgerDir  string
	SQLitePath string
}

// OpenStore opens the configured backend.
func OpenStore(cfg StoreConfig, logger arbor.ILogger) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendBadger:
		return OpenBadgerStore(cfg.BadgerDir, logger)
	case BackendSQLite:
		return OpenSQLiteStore(cfg.SQLitePath, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].TradingDay.Before(keys[j].TradingDay)
	})
}

// --- File store ---

// FileStore keeps one JSON file per key: <SYMBOL>_<YYYY-MM-DD>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(k Key) string {
	return filepath.Join(s.dir, k.String()+".json")
}

func (s *FileStore) Get(_ context.Context, symbol string, day calendar.TradingDay) (PriceRecord, bool, error) {
	k := keyOf(symbol, day)
	data, err := os.ReadFile(s.path(k))
	if errors.Is(err, fs.ErrNotExist) {
		return PriceRecord{}, false, nil
	}
	if err != nil {
		return PriceRecord{}, false, fmt.Errorf("file cache: read %s: %w", k, err)
	}

	var rec PriceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return PriceRecord{}, false, fmt.Errorf("file cache: decode %s: %w", k, err)
	}
	if rec.Key() != k {
		return PriceRecord{}, false, fmt.Errorf("file cache: %s holds entry for %s", k, rec.Key())
	}
	return rec, true, nil
}

// Put writes to a temp file in the cache directory and renames it into place,
// so readers see either the old entry or the new one.
func (s *FileStore) Put(_ context.Context, rec PriceRecord) error {
	k := rec.Key()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("file cache: encode %s: %w", k, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+k.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("file cache: temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("file cache: write %s: %w", k, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("file cache: sync %s: %w", k, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file cache: close %s: %w", k, err)
	}
	if err := os.Rename(tmpName, s.path(k)); err != nil {
		cleanup()
		return fmt.Errorf("file cache: rename %s: %w", k, err)
	}
	return nil
}

func (s *FileStore) Invalidate(_ context.Context, symbol string, day calendar.TradingDay) error {
	err := os.Remove(s.path(keyOf(symbol, day)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file cache: remove: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file cache: list: %w", err)
	}

	var keys []Key
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		k, ok := parseKey(strings.TrimSuffix(name, ".json"))
		if ok {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (s *FileStore) Close() error { return nil }

// parseKey splits "SYMBOL_YYYY-MM-DD". Symbols never contain '_'.
func parseKey(s string) (Key, bool) {
	i := strings.LastIndex(s, "_")
	if i <= 0 {
		return Key{}, false
	}
	day, err := calendar.ParseTradingDay(s[i+1:])
	if err != nil {
		return Key{}, false
	}
	return Key{Symbol: s[:i], TradingDay: day}, true
}

// --- In-memory store ---

// MemoryStore is a process-local Store. Nothing survives the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]PriceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]PriceRecord)}
}

func (s *MemoryStore) Get(_ context.Context, symbol string, day calendar.TradingDay) (PriceRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.entries[keyOf(symbol, day)]
	s.mu.RUnlock()
	return rec, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, rec PriceRecord) error {
	s.mu.Lock()
	s.entries[rec.Key()] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, symbol string, day calendar.TradingDay) error {
	s.mu.Lock()
	delete(s.entries, keyOf(symbol, day))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Key, error) {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sortKeys(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error { return nil }
