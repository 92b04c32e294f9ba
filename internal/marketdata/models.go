// Package marketdata acquires end-of-day index prices. A Fetcher consults a
// persistent Store keyed by (symbol, trading day), calls the external provider
// only on a miss, and paces network calls through a process-wide Pacer.
package marketdata

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/seenimoa/daybreak/internal/calendar"
)

// Group is the market region an index belongs to.
type Group string

const (
	GroupUS     Group = "US"
	GroupEurope Group = "Europe"
	GroupAsia   Group = "Asia"
)

// Groups returns the groups in report order.
func Groups() []Group {
	return []Group{GroupUS, GroupEurope, GroupAsia}
}

// IndexSymbol maps an ETF ticker to its display name and region.
type IndexSymbol struct {
	Symbol string `mapstructure:"symbol" yaml:"symbol" json:"symbol" validate:"required"`
	Name   string `mapstructure:"name"   yaml:"name"   json:"name"   validate:"required"`
	Group  Group  `mapstructure:"group"  yaml:"group"  json:"group"  validate:"required,oneof=US Europe Asia"`
}

// PriceRecord is the normalized close and change for one symbol on one trading day.
type PriceRecord struct {
	Symbol        string              `json:"symbol"`
	TradingDay    calendar.TradingDay `json:"trading_day"`
	AsOf          calendar.TradingDay `json:"as_of"`
	Close         float64             `json:"close"`
	PriorClose    float64             `json:"prior_close"`
	Change        float64             `json:"change"`
	PercentChange float64             `json:"percent_change"`
	FetchedAt     time.Time           `json:"fetched_at"`
}

// Key identifies a cache entry.
type Key struct {
	Symbol     string
	TradingDay calendar.TradingDay
}

func (k Key) String() string {
	return k.Symbol + "_" + k.TradingDay.String()
}

// Key returns the cache key of the record.
func (r PriceRecord) Key() Key {
	return Key{Symbol: r.Symbol, TradingDay: r.TradingDay}
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,20}$`)

// NormalizeSymbol upper-cases and validates a ticker. Valid symbols are safe to
// use as file names and store keys.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}
