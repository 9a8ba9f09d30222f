package transform

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing string dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

// parseTime extracts a time from a Value. Numbers are epoch seconds
// (milliseconds when the magnitude says so); strings try the known layouts.
func parseTime(v Value) (time.Time, bool) {
	switch v.Kind() {
	case KindNumber:
		d, _ := v.AsNumber()
		n := d.IntPart()
		if n > 1e12 { // epoch milliseconds
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	case KindString:
		s := strings.TrimSpace(v.AsString())
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return parseTime(Number(d))
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func dateISODate(v Value) Value {
	t, ok := parseTime(v)
	if !ok {
		return String("")
	}
	return String(t.Format("2006-01-02"))
}

func dateISODateTime(v Value) Value {
	t, ok := parseTime(v)
	if !ok {
		return String("")
	}
	return String(t.Format(time.RFC3339))
}

func dateUSDate(v Value) Value {
	t, ok := parseTime(v)
	if !ok {
		return String("")
	}
	return String(t.Format("01/02/2006"))
}

func dateEpochSeconds(v Value) Value {
	t, ok := parseTime(v)
	if !ok {
		return Number(decimal.Zero)
	}
	return Number(decimal.NewFromInt(t.Unix()))
}
