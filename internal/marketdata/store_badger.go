package marketdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

// badgerEntry is the persisted form of a PriceRecord.
type badgerEntry struct {
	Key           string `badgerhold:"key"`
	Symbol        string
	TradingDay    string
	AsOf          string
	Close         float64
	PriorClose    float64
	Change        float64
	PercentChange float64
	FetchedAt     time.Time
}

func badgerKey(symbol string, day calendar.TradingDay) string {
	return symbol + "|" + day.String()
}

// BadgerStore keeps records in an embedded badger database.
type BadgerStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// OpenBadgerStore opens or creates the database in dir.
func OpenBadgerStore(dir string, logger arbor.ILogger) (*BadgerStore, error) {
	if dir == "" {
		return nil, errors.New("badger cache: directory is required")
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("badger cache: create %s: %w", dir, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil // badger's own logger is noisy; arbor covers it

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badger cache: open %s: %w", dir, err)
	}
	logger.Debug().Str("path", dir).Msg("Badger cache opened")
	return &BadgerStore{store: store, logger: logger}, nil
}

func (s *BadgerStore) Get(_ context.Context, symbol string, day calendar.TradingDay) (PriceRecord, bool, error) {
	var e badgerEntry
	err := s.store.Get(badgerKey(symbol, day), &e)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return PriceRecord{}, false, nil
	}
	if err != nil {
		return PriceRecord{}, false, fmt.Errorf("badger cache: get %s: %w", keyOf(symbol, day), err)
	}
	rec, err := e.record()
	if err != nil {
		return PriceRecord{}, false, fmt.Errorf("badger cache: decode %s: %w", keyOf(symbol, day), err)
	}
	return rec, true, nil
}

func (s *BadgerStore) Put(_ context.Context, rec PriceRecord) error {
	e := badgerEntry{
		Key:           badgerKey(rec.Symbol, rec.TradingDay),
		Symbol:        rec.Symbol,
		TradingDay:    rec.TradingDay.String(),
		AsOf:          rec.AsOf.String(),
		Close:         rec.Close,
		PriorClose:    rec.PriorClose,
		Change:        rec.Change,
		PercentChange: rec.PercentChange,
		FetchedAt:     rec.FetchedAt,
	}
	if err := s.store.Upsert(e.Key, &e); err != nil {
		return fmt.Errorf("badger cache: upsert %s: %w", rec.Key(), err)
	}
	return nil
}

func (s *BadgerStore) Invalidate(_ context.Context, symbol string, day calendar.TradingDay) error {
	err := s.store.Delete(badgerKey(symbol, day), badgerEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("badger cache: delete %s: %w", keyOf(symbol, day), err)
	}
	return nil
}

func (s *BadgerStore) List(_ context.Context) ([]Key, error) {
	var entries []badgerEntry
	if err := s.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("badger cache: list: %w", err)
	}
	keys := make([]Key, 0, len(entries))
	for _, e := range entries {
		day, err := calendar.ParseTradingDay(e.TradingDay)
		if err != nil {
			s.logger.Warn().Str("key", e.Key).Err(err).Msg("Skipping unreadable cache entry")
			continue
		}
		keys = append(keys, Key{Symbol: e.Symbol, TradingDay: day})
	}
	sortKeys(keys)
	return keys, nil
}

func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (e badgerEntry) record() (PriceRecord, error) {
	day, err := calendar.ParseTradingDay(e.TradingDay)
	if err != nil {
		return PriceRecord{}, err
	}
	asOf, err := calendar.ParseTradingDay(e.AsOf)
	if err != nil {
		return PriceRecord{}, err
	}
	return PriceRecord{
		Symbol:        e.Symbol,
		TradingDay:    day,
		AsOf:          asOf,
		Close:         e.Close,
		PriorClose:    e.PriorClose,
		Change:        e.Change,
		PercentChange: e.PercentChange,
		FetchedAt:     e.FetchedAt,
	}, nil
}
