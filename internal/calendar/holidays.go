package calendar

import "fmt"

// US market holidays (NYSE). Update annually.
var usHolidays = map[string]string{
	// 2025
	"2025-01-01": "New Year's Day",
	"2025-01-09": "National Day of Mourning",
	"2025-01-20": "Martin Luther King Jr. Day",
	"2025-02-17": "Presidents' Day",
	"2025-04-18": "Good Friday",
	"2025-05-26": "Memorial Day",
	"2025-06-19": "Juneteenth",
	"2025-07-04": "Independence Day",
	"2025-09-01": "Labor Day",
	"2025-11-27": "Thanksgiving Day",
	"2025-12-25": "Christmas Day",

	// 2026
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Presidents' Day",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// DefaultUSHolidays returns a copy of the built-in holiday table.
func DefaultUSHolidays() map[TradingDay]string {
	out := make(map[TradingDay]string, len(usHolidays))
	for s, name := range usHolidays {
		out[MustParse(s)] = name
	}
	return out
}

// ParseHolidays builds a holiday table from "2006-01-02" strings. Names are left
// generic since configuration only carries dates.
func ParseHolidays(dates []string) (map[TradingDay]string, error) {
	out := make(map[TradingDay]string, len(dates))
	for _, s := range dates {
		d, err := ParseTradingDay(s)
		if err != nil {
			return nil, fmt.Errorf("holiday table: %w", err)
		}
		out[d] = "Market Holiday"
	}
	return out, nil
}
