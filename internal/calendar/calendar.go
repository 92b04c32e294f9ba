// Package calendar resolves US market trading days. Weekends and a holiday
// table (data, not rules) are skipped; the as-of day for end-of-day data is the
// most recent session whose close has already passed.
package calendar

import (
	"fmt"
	"time"
)

// Eastern is the US market time zone (America/New_York).
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// No tz database: fixed EST. DST is lost, which only shifts the close check by an hour.
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// DefaultMaxLookback bounds the backward walk in Resolve.
const DefaultMaxLookback = 10

// DateResolutionError is returned when no trading day is found within the lookback bound.
type DateResolutionError struct {
	Reference time.Time
	Lookback  int
}

func (e *DateResolutionError) Error() string {
	return fmt.Sprintf("no trading day within %d days before %s", e.Lookback, e.Reference.Format(time.RFC3339))
}

// Calendar answers trading-day questions for one market.
type Calendar struct {
	loc         *time.Location
	closeHour   int
	closeMinute int
	maxLookback int
	holidays    map[TradingDay]string
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithHolidays replaces the holiday table. Keys are dates, values are display names.
func WithHolidays(holidays map[TradingDay]string) Option {
	return func(c *Calendar) {
		c.holidays = make(map[TradingDay]string, len(holidays))
		for d, name := range holidays {
			c.holidays[d] = name
		}
	}
}

// WithLocation sets the market time zone.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithMarketClose sets the regular session close in the market time zone.
func WithMarketClose(hour, minute int) Option {
	return func(c *Calendar) {
		c.closeHour = hour
		c.closeMinute = minute
	}
}

// WithMaxLookback sets how many days Resolve may walk back.
func WithMaxLookback(days int) Option {
	return func(c *Calendar) {
		if days > 0 {
			c.maxLookback = days
		}
	}
}

// New creates a US market calendar (16:00 ET close, default holiday table).
func New(opts ...Option) *Calendar {
	c := &Calendar{
		loc:         Eastern,
		closeHour:   16,
		closeMinute: 0,
		maxLookback: DefaultMaxLookback,
		holidays:    DefaultUSHolidays(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the market time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// MaxLookback returns the backward walk bound.
func (c *Calendar) MaxLookback() int { return c.maxLookback }

// Today returns the market-local date of t.
func (c *Calendar) Today(t time.Time) TradingDay {
	return DayOf(t.In(c.loc))
}

// MarketClose returns the close of the regular session on day d.
func (c *Calendar) MarketClose(d TradingDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.closeHour, c.closeMinute, 0, 0, c.loc)
}

// IsHoliday reports whether d is in the holiday table.
func (c *Calendar) IsHoliday(d TradingDay) bool {
	_, ok := c.holidays[d]
	return ok
}

// Holiday returns the holiday name for d, if any.
func (c *Calendar) Holiday(d TradingDay) (string, bool) {
	name, ok := c.holidays[d]
	return name, ok
}

// IsTradingDay checks if d is a weekday that is not a holiday.
func (c *Calendar) IsTradingDay(d TradingDay) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(d)
}

// Resolve returns the most recent trading day whose session has closed at ref.
//
// The reference date itself qualifies only when it is a trading day and ref is
// at or after the close. Otherwise the search steps back one day at a time, up
// to MaxLookback days.
func (c *Calendar) Resolve(ref time.Time) (TradingDay, error) {
	local := ref.In(c.loc)
	d := DayOf(local)
	if c.IsTradingDay(d) && !local.Before(c.MarketClose(d)) {
		return d, nil
	}
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDays(-1)
		if c.IsTradingDay(d) {
			return d, nil
		}
	}
	return TradingDay{}, &DateResolutionError{Reference: ref, Lookback: c.maxLookback}
}

// Prev returns the trading day before d.
func (c *Calendar) Prev(from TradingDay) (TradingDay, error) {
	d := from
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDays(-1)
		if c.IsTradingDay(d) {
			return d, nil
		}
	}
	return TradingDay{}, &DateResolutionError{Reference: from.Time(c.loc), Lookback: c.maxLookback}
}

// Next returns the trading day after d.
func (c *Calendar) Next(from TradingDay) (TradingDay, error) {
	d := from
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDays(1)
		if c.IsTradingDay(d) {
			return d, nil
		}
	}
	return TradingDay{}, fmt.Errorf("no trading day within %d days after %s", c.maxLookback, from)
}

// TradingDaysBetween counts trading days in [start, end).
func (c *Calendar) TradingDaysBetween(start, end TradingDay) int {
	count := 0
	for d := start; d.Before(end); d = d.AddDays(1) {
		if c.IsTradingDay(d) {
			count++
		}
	}
	return count
}

// Status returns a human-readable market status at t.
func (c *Calendar) Status(t time.Time) string {
	local := t.In(c.loc)
	d := DayOf(local)

	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return "CLOSED (Weekend)"
	}
	if name, ok := c.Holiday(d); ok {
		return "CLOSED (" + name + ")"
	}

	open := time.Date(d.Year, d.Month, d.Day, 9, 30, 0, 0, c.loc)
	switch {
	case local.Before(open):
		return "PRE-MARKET"
	case local.Before(c.MarketClose(d)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
