package shared

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// ParseDate parses an ISO YYYY-MM-DD string as a local calendar date.
// Timestamps are truncated to their date part. Parsing happens in the
// local zone so that year boundaries stay stable west of UTC.
func ParseDate(s string) (time.Time, error) {
	if idx := strings.IndexByte(s, 'T'); idx > 0 {
		s = s[:idx]
	}
	t, err := time.ParseInLocation(DateFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("shared: invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date in the wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// YearStart returns January 1st of the given year, local time.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
}

// YearEnd returns December 31st of the given year, local time.
func YearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.Local)
}

// MonthsBetween counts whole calendar months from one date to another,
// flooring: the count is decremented when the "from" day of month exceeds
// the "to" day of month. Returns zero when to precedes from.
func MonthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if from.Day() > to.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// MonthsInService counts the calendar months a good has been in service
// between two dates, with the service-start month counting in full.
func MonthsInService(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return MonthsBetween(from, to) + 1
}

// LaterOf returns the later of two dates.
func LaterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
	return first.AddDate(0, 1, -1).Day()
}
