package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and display format of a TradingDay.
const DateLayout = "2006-01-02"

// TradingDay is a civil date. It carries no time zone; use Time to anchor it.
type TradingDay struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the date part of t in t's own location.
func DayOf(t time.Time) TradingDay {
	y, m, d := t.Date()
	return TradingDay{Year: y, Month: m, Day: d}
}

// Date builds a TradingDay.
func Date(year int, month time.Month, day int) TradingDay {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseTradingDay parses "2006-01-02".
func ParseTradingDay(s string) (TradingDay, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TradingDay{}, fmt.Errorf("parse trading day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// MustParse is ParseTradingDay for static tables; it panics on bad input.
func MustParse(s string) TradingDay {
	d, err := ParseTradingDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight of d in loc.
func (d TradingDay) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n calendar days.
func (d TradingDay) AddDays(n int) TradingDay {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Weekday returns the day of the week.
func (d TradingDay) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Before reports whether d is earlier than o.
func (d TradingDay) Before(o TradingDay) bool {
	return d.Time(time.UTC).Before(o.Time(time.UTC))
}

// After reports whether d is later than o.
func (d TradingDay) After(o TradingDay) bool {
	return o.Before(d)
}

// IsZero reports whether d is unset.
func (d TradingDay) IsZero() bool {
	return d == TradingDay{}
}

func (d TradingDay) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time(time.UTC).Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d TradingDay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *TradingDay) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = TradingDay{}
		return nil
	}
	parsed, err := ParseTradingDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = TradingDay{}

// MarshalJSON encodes the day as "2006-01-02".
func (d TradingDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "2006-01-02".
func (d *TradingDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("trading day: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}
