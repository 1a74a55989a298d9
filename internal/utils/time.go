package utils

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the form and the remote API
const DateLayout = "2006-01-02"

// FormatDate formats a time.Time as YYYY-MM-DD, or "" for the zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses a date string in YYYY-MM-DD format. A blank string yields
// the zero time and no error.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, dateStr)
}

// TruncateToDate drops the clock part, keeping the calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DefaultDateRange returns the range ending today and starting days earlier
func DefaultDateRange(today time.Time, days int) (start, end time.Time) {
	end = TruncateToDate(today)
	start = end.AddDate(0, 0, -days)
	return start, end
}
