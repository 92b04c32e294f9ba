package marketdata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/seenimoa/daybreak/internal/calendar"
)

// --- Sentinel errors ---

var (
	// ErrNoAPIKey is returned when the provider key is not configured.
	ErrNoAPIKey = errors.New("market data API key not configured")

	// ErrRateLimited is returned when the provider rejects a call for quota or frequency.
	ErrRateLimited = errors.New("rate limited by data provider")

	// ErrProvider is returned for provider-reported errors (bad symbol, bad key).
	ErrProvider = errors.New("data provider error")

	// ErrMalformedResponse is returned when the payload cannot be parsed.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrInsufficientHistory is returned when fewer than two closes are available.
	ErrInsufficientHistory = errors.New("fewer than two closes available")

	// ErrZeroPriorClose is returned when the prior close is zero.
	ErrZeroPriorClose = errors.New("prior close is zero")

	// ErrInvalidSymbol is returned for tickers that cannot be used as keys.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Is lets errors.Is(err, ErrRateLimited) match HTTP 429.
func (e *ErrHTTP) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// FetchError reports a failed fetch for one symbol. It is never cached.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CacheWriteError reports a record that was fetched but could not be persisted.
type CacheWriteError struct {
	Key Key
	Err error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache write %s: %v", e.Key, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

func keyOf(symbol string, day calendar.TradingDay) Key {
	return Key{Symbol: symbol, TradingDay: day}
}
