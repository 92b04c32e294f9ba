package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

// SQLiteStore keeps records in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger arbor.ILogger
}

// OpenSQLiteStore opens (or creates) the database and runs migrations.
func OpenSQLiteStore(path string, logger arbor.ILogger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite cache: path is required")
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite cache: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug().Str("path", path).Msg("SQLite cache opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_records (
			symbol         TEXT NOT NULL,
			trading_day    TEXT NOT NULL,
			as_of          TEXT NOT NULL,
			close          REAL NOT NULL,
			prior_close    REAL NOT NULL,
			change         REAL NOT NULL,
			percent_change REAL NOT NULL,
			fetched_at     INTEGER NOT NULL,
			PRIMARY KEY (symbol, trading_day)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, symbol string, day calendar.TradingDay) (PriceRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT as_of, close, prior_close, change, percent_change, fetched_at
		 FROM price_records WHERE symbol = ? AND trading_day = ?`,
		symbol, day.String())

	var (
		asOf      string
		fetchedAt int64
		rec       = PriceRecord{Symbol: symbol, TradingDay: day}
	)
	err := row.Scan(&asOf, &rec.Close, &rec.PriorClose, &rec.Change, &rec.PercentChange, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PriceRecord{}, false, nil
	}
	if err != nil {
		return PriceRecord{}, false, fmt.Errorf("sqlite cache: get %s: %w", keyOf(symbol, day), err)
	}
	if rec.AsOf, err = calendar.ParseTradingDay(asOf); err != nil {
		return PriceRecord{}, false, fmt.Errorf("sqlite cache: decode %s: %w", keyOf(symbol, day), err)
	}
	rec.FetchedAt = time.Unix(0, fetchedAt).UTC()
	return rec, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO price_records
		 (symbol, trading_day, as_of, close, prior_close, change, percent_change, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, rec.TradingDay.String(), rec.AsOf.String(),
		rec.Close, rec.PriorClose, rec.Change, rec.PercentChange,
		rec.FetchedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite cache: put %s: %w", rec.Key(), err)
	}
	return nil
}

func (s *SQLiteStore) Invalidate(ctx context.Context, symbol string, day calendar.TradingDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM price_records WHERE symbol = ? AND trading_day = ?`,
		symbol, day.String()); err != nil {
		return fmt.Errorf("sqlite cache: delete %s: %w", keyOf(symbol, day), err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, trading_day FROM price_records ORDER BY symbol, trading_day`)
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: list: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var symbol, dayStr string
		if err := rows.Scan(&symbol, &dayStr); err != nil {
			return nil, fmt.Errorf("sqlite cache: scan: %w", err)
		}
		day, err := calendar.ParseTradingDay(dayStr)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Str("day", dayStr).Msg("Skipping unreadable cache row")
			continue
		}
		keys = append(keys, Key{Symbol: symbol, TradingDay: day})
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
