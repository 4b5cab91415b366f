package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a reservation date.
const DateLayout = "2006-01-02"

// Date parses a calendar date in YYYY-MM-DD form. The result is midnight UTC.
func Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// FormatDate renders t's calendar date in YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOnly drops the time-of-day of t as seen in t's own location
// and returns the calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthYear parses the month and year query parameters of the month-level
// availability endpoints.
func MonthYear(monthRaw, yearRaw string) (time.Month, int, error) {
	month, err := strconv.Atoi(strings.TrimSpace(monthRaw))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q; expected 1-12", monthRaw)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearRaw))
	if err != nil || year < 1970 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid year %q", yearRaw)
	}
	return time.Month(month), year, nil
}

// MonthRange returns the first and last calendar date of a month as
// YYYY-MM-DD strings, suitable for lexical range queries.
func MonthRange(month time.Month, year int) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return FormatDate(first), FormatDate(last)
}
