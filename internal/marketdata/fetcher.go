package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

var hundred = decimal.NewFromInt(100)

// Stats counts what a Fetcher did since it was created.
type Stats struct {
	CacheHits        int
	NetworkCalls     int
	Failures         int
	CacheWriteErrors int
	PacingWait       time.Duration
}

// Fetcher returns price records from the store, falling back to the provider.
type Fetcher struct {
	source SeriesSource
	store  Store
	pacer  *Pacer
	logger arbor.ILogger
	now    func() time.Time

	// flight collapses concurrent fetches of one key into one provider call.
	flight singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithPacer shares a pacer between fetchers.
func WithPacer(p *Pacer) FetcherOption {
	return func(f *Fetcher) {
		if p != nil {
			f.pacer = p
		}
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(logger arbor.ILogger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFetchClock sets the clock used for FetchedAt.
func WithFetchClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher creates a fetcher over source and store. Without WithPacer it
// paces calls DefaultPacingInterval apart.
func NewFetcher(source SeriesSource, store Store, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source: source,
		store:  store,
		logger: common.NewSilentLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.pacer == nil {
		f.pacer = NewPacer(DefaultPacingInterval)
	}
	return f
}

// Pacer returns the pacer guarding network calls.
func (f *Fetcher) Pacer() *Pacer { return f.pacer }

// Stats returns a snapshot of the counters.
func (f *Fetcher) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *Fetcher) count(fn func(*Stats)) {
	f.mu.Lock()
	fn(&f.stats)
	f.mu.Unlock()
}

// Fetch returns the record for symbol on day. A cached record is returned
// without waiting or calling the provider. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, day calendar.TradingDay) (PriceRecord, error) {
	rec, err := f.fetch(ctx, symbol, day)
	if err != nil {
		f.count(func(s *Stats) { s.Failures++ })
		return PriceRecord{}, &FetchError{Symbol: symbol, Err: err}
	}
	return rec, nil
}

func (f *Fetcher) fetch(ctx context.Context, symbol string, day calendar.TradingDay) (PriceRecord, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return PriceRecord{}, err
	}

	v, err, shared := f.flight.Do(keyOf(sym, day).String(), func() (any, error) {
		return f.load(ctx, sym, day)
	})
	if shared {
		f.logger.Debug().Str("symbol", sym).Str("day", day.String()).Msg("Joined in-flight fetch")
	}
	if err != nil {
		return PriceRecord{}, err
	}
	return v.(PriceRecord), nil
}

// load serves one key from the store or the provider.
func (f *Fetcher) load(ctx context.Context, sym string, day calendar.TradingDay) (PriceRecord, error) {
	cached, ok, err := f.store.Get(ctx, sym, day)
	if err != nil {
		f.logger.Warn().Err(err).Str("symbol", sym).Str("day", day.String()).
			Msg("Cache read failed, treating as miss")
	} else if ok {
		f.count(func(s *Stats) { s.CacheHits++ })
		f.logger.Debug().Str("symbol", sym).Str("day", day.String()).Msg("Cache hit")
		return cached, nil
	}

	// No pacing slot for a source that cannot issue the request.
	if rc, ok := f.source.(readyChecker); ok {
		if err := rc.Ready(); err != nil {
			return PriceRecord{}, err
		}
	}

	waited, err := f.pacer.Wait(ctx)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("pacing wait: %w", err)
	}
	f.count(func(s *Stats) {
		s.NetworkCalls++
		s.PacingWait += waited
	})
	if waited > 0 {
		f.logger.Debug().Str("symbol", sym).Dur("waited", waited).Msg("Paced provider call")
	}

	raw, err := f.source.QueryDailySeries(ctx, sym)
	f.pacer.Done()
	if err != nil {
		return PriceRecord{}, err
	}
	series, err := ParseDailySeries(raw)
	if err != nil {
		return PriceRecord{}, err
	}
	rec, err := computeRecord(sym, day, series, f.now())
	if err != nil {
		return PriceRecord{}, err
	}
	if rec.AsOf != day {
		f.logger.Warn().Str("symbol", sym).Str("day", day.String()).Str("as_of", rec.AsOf.String()).
			Msg("Provider has no close for trading day, using latest available")
	}

	if err := f.store.Put(ctx, rec); err != nil {
		werr := &CacheWriteError{Key: rec.Key(), Err: err}
		f.count(func(s *Stats) { s.CacheWriteErrors++ })
		f.logger.Warn().Err(werr).Str("symbol", sym).Msg("Record not cached")
	}

	f.logger.Info().Str("symbol", sym).Str("day", day.String()).
		Str("close", decimal.NewFromFloat(rec.Close).StringFixed(2)).
		Str("pct", decimal.NewFromFloat(rec.PercentChange).StringFixed(2)).
		Msg("Fetched close")
	return rec, nil
}

// computeRecord picks the close for day (or the latest before it) and the
// close before that.
func computeRecord(symbol string, day calendar.TradingDay, series DailySeries, fetchedAt time.Time) (PriceRecord, error) {
	i := series.latestOnOrBefore(day)
	if i < 0 || i+1 >= len(series) {
		return PriceRecord{}, fmt.Errorf("%w on or before %s (series has %d)", ErrInsufficientHistory, day, len(series))
	}
	cur, prev := series[i], series[i+1]
	if prev.Close.IsZero() {
		return PriceRecord{}, fmt.Errorf("%w on %s", ErrZeroPriorClose, prev.Day)
	}

	change := cur.Close.Sub(prev.Close)
	pct := change.Div(prev.Close).Mul(hundred)

	return PriceRecord{
		Symbol:        symbol,
		TradingDay:    day,
		AsOf:          cur.Day,
		Close:         cur.Close.InexactFloat64(),
		PriorClose:    prev.Close.InexactFloat64(),
		Change:        change.InexactFloat64(),
		PercentChange: pct.InexactFloat64(),
		FetchedAt:     fetchedAt,
	}, nil
}

// --- Batch ---

// Result is the outcome for one symbol of a batch.
type Result struct {
	Symbol string
	Record PriceRecord
	Err    error
}

// OK reports whether the symbol has a record.
func (r Result) OK() bool { return r.Err == nil }

// Batch holds per-symbol outcomes in request order.
type Batch struct {
	TradingDay calendar.TradingDay
	Results    []Result
	index      map[string]int
}

func newBatch(day calendar.TradingDay, n int) *Batch {
	return &Batch{TradingDay: day, Results: make([]Result, 0, n), index: make(map[string]int, n)}
}

func (b *Batch) add(r Result) {
	if _, dup := b.index[r.Symbol]; !dup {
		b.index[r.Symbol] = len(b.Results)
	}
	b.Results = append(b.Results, r)
}

// Get returns the outcome for symbol.
func (b *Batch) Get(symbol string) (Result, bool) {
	i, ok := b.index[symbol]
	if !ok {
		return Result{}, false
	}
	return b.Results[i], true
}

// Records returns the successful records by symbol.
func (b *Batch) Records() map[string]PriceRecord {
	out := make(map[string]PriceRecord, len(b.Results))
	for _, r := range b.Results {
		if r.OK() {
			out[r.Symbol] = r.Record
		}
	}
	return out
}

// Errors returns the failures by symbol.
func (b *Batch) Errors() map[string]error {
	out := make(map[string]error)
	for _, r := range b.Results {
		if !r.OK() {
			out[r.Symbol] = r.Err
		}
	}
	return out
}

// Failed returns the number of failed symbols.
func (b *Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}

// Succeeded returns the number of symbols with a record.
func (b *Batch) Succeeded() int { return len(b.Results) - b.Failed() }

// FetchMany fetches symbols in order. A failure is recorded for its symbol
// and the batch continues.
func (f *Fetcher) FetchMany(ctx context.Context, symbols []string, day calendar.TradingDay) *Batch {
	batch := newBatch(day, len(symbols))
	for _, symbol := range symbols {
		rec, err := f.Fetch(ctx, symbol, day)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				f.logger.Warn().Err(fe.Err).Str("symbol", symbol).Msg("Fetch failed")
			}
			batch.add(Result{Symbol: symbol, Err: err})
			continue
		}
		batch.add(Result{Symbol: symbol, Record: rec})
	}

	f.logger.Info().
		Str("day", day.String()).
		Int("ok", batch.Succeeded()).
		Int("failed", batch.Failed()).
		Msg("Batch fetch complete")
	return batch
}
