package report

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// NotAvailable is shown in place of a value for a symbol whose fetch failed.
const NotAvailable = "N/A"

// FormatClose renders a price as "$1,234.56".
func FormatClose(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatChange renders a signed change as "+1.23" or "-1,234.56".
func FormatChange(v float64) string {
	s := humanize.FormatFloat("#,###.##", v)
	if v >= 0 {
		return "+" + s
	}
	return s
}

// FormatPercent renders a signed percentage as "+1.23%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// Arrow returns ▲ for flat or up moves and ▼ for down moves.
func Arrow(v float64) string {
	if v >= 0 {
		return "▲"
	}
	return "▼"
}
