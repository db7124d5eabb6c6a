package commission

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the day format used by date filters.
const DateLayout = "2006-01-02"

// ErrInvalidRange is returned for unparsable or inverted date filters.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is an inclusive day filter. Zero bounds are open.
type DateRange struct {
	From  string    `json:"desde,omitempty"`
	To    string    `json:"hasta,omitempty"`
	Start time.Time `json:"inicio"`
	End   time.Time `json:"fin"`
}

// ParseDateRange validates from/to (YYYY-MM-DD, either may be empty) and resolves
// them to the start of the first day and the last second of the last day in loc.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := DateRange{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if r.From != "" {
		day, err := time.ParseInLocation(DateLayout, r.From, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: desde %q", ErrInvalidRange, r.From)
		}
		r.Start = day
	}
	if r.To != "" {
		day, err := time.ParseInLocation(DateLayout, r.To, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: hasta %q", ErrInvalidRange, r.To)
		}
		r.End = day.Add(24*time.Hour - time.Second)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: hasta before desde", ErrInvalidRange)
	}
	return r, nil
}

// PresetRange returns the quick filters offered next to the date inputs:
// "hoy", "ayer" and "ultimos7".
func PresetRange(name string, now time.Time, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	switch name {
	case "hoy":
		d := today.Format(DateLayout)
		return ParseDateRange(d, d, loc)
	case "ayer":
		d := today.AddDate(0, 0, -1).Format(DateLayout)
		return ParseDateRange(d, d, loc)
	case "ultimos7":
		return ParseDateRange(today.AddDate(0, 0, -7).Format(DateLayout), today.Format(DateLayout), loc)
	}
	return DateRange{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidRange, name)
}

// Active reports whether any bound is set.
func (r DateRange) Active() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}

// Contains reports whether t falls inside the range. An undated record never
// matches an active range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Active() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// FilterSales keeps the sales dated inside r, preserving order.
func FilterSales(sales []Sale, r DateRange) []Sale {
	out := make([]Sale, 0, len(sales))
	if !r.Active() {
		return append(out, sales...)
	}
	for _, s := range sales {
		if r.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

// NewestFirst returns sales ordered by date, most recent first. Sales with the
// same date keep their order.
func NewestFirst(sales []Sale) []Sale {
	out := slices.Clone(sales)
	slices.SortStableFunc(out, func(a, b Sale) int {
		return b.Date.Compare(a.Date)
	})
	return out
}
