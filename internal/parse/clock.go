package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Clock normalizes a time-of-day such as "9:30", "18:00" or "18:00:00"
// (the form postgres TIME columns come back in) to "HH:MM".
func Clock(raw string) (string, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("invalid time %q; expected HH:MM", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return "", fmt.Errorf("invalid time %q; out of range", raw)
	}
	if m[3] != "" {
		if sec, _ := strconv.Atoi(m[3]); sec > 59 {
			return "", fmt.Errorf("invalid time %q; out of range", raw)
		}
	}
	return fmt.Sprintf("%02d:%02d", h, min), nil
}

// Minutes returns the number of minutes since midnight of a time-of-day.
func Minutes(raw string) (int, error) {
	c, err := Clock(raw)
	if err != nil {
		return 0, err
	}
	h, _ := strconv.Atoi(c[:2])
	m, _ := strconv.Atoi(c[3:])
	return h*60 + m, nil
}

// Window validates a start/end pair and returns both normalized.
// The end must be strictly after the start.
func Window(startRaw, endRaw string) (string, string, error) {
	start, err := Clock(startRaw)
	if err != nil {
		return "", "", err
	}
	end, err := Clock(endRaw)
	if err != nil {
		return "", "", err
	}
	if end <= start {
		return "", "", fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return start, end, nil
}

// At combines a calendar date (YYYY-MM-DD) and a time-of-day in loc.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := Date(date)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := Minutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, loc), nil
}
