package domain

import (
	"strings"
	"time"
)

// Range is the fixed vocabulary of aggregation windows.
type Range string

const (
	Range30d Range = "30d"
	Range90d Range = "90d"
	RangeYTD Range = "YTD"
	Range12m Range = "12m"
)

// DefaultRange is used when the caller does not pick one.
const DefaultRange = Range30d

// ParseRange validates a range token. YTD is accepted in any case.
func ParseRange(s string) (Range, error) {
	switch strings.TrimSpace(s) {
	case "":
		return DefaultRange, nil
	case "30d":
		return Range30d, nil
	case "90d":
		return Range90d, nil
	case "12m":
		return Range12m, nil
	}
	if strings.EqualFold(strings.TrimSpace(s), "ytd") {
		return RangeYTD, nil
	}
	return "", Validationf("unknown range %q (expected 30d, 90d, YTD or 12m)", s)
}

// Bounds resolves the range to an inclusive [start, end] pair of calendar
// days relative to now. Both ends are midnight UTC.
func (r Range) Bounds(now time.Time) (time.Time, time.Time) {
	end := Day(now)
	switch r {
	case Range90d:
		return end.AddDate(0, 0, -90), end
	case RangeYTD:
		return time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), end
	case Range12m:
		return end.AddDate(0, -12, 0), end
	default:
		return end.AddDate(0, 0, -30), end
	}
}

// Label is the human readable period used in reports.
func (r Range) Label() string {
	switch r {
	case Range90d:
		return "Últimos 90 días"
	case RangeYTD:
		return "Año en curso"
	case Range12m:
		return "Últimos 12 meses"
	default:
		return "Últimos 30 días"
	}
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
