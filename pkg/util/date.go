package util

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day key format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Today returns the calendar date in loc. A nil loc means local time.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", a, err)
	}
	tb, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", b, err)
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// DateRange lists every date from..to inclusive. Ranges longer than max days
// are rejected.
func DateRange(from, to string, max int) ([]string, error) {
	n, err := DaysBetween(from, to)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("range end %s is before start %s", to, from)
	}
	if max > 0 && n+1 > max {
		return nil, fmt.Errorf("range of %d days exceeds limit %d", n+1, max)
	}
	start, _ := time.Parse(DateLayout, from)
	out := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, start.AddDate(0, 0, i).Format(DateLayout))
	}
	return out, nil
}
