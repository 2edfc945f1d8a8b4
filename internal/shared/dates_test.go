package shared

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-06-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2023, time.June, 15)) {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Location() != time.Local {
		t.Fatalf("expected local zone, got %v", got.Location())
	}
}

func TestParseDateTruncatesTimestamps(t *testing.T) {
	got, err := ParseDate("2023-06-15T18:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2023, time.June, 15)) {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("15/06/2023"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same day", date(2023, time.March, 10), date(2023, time.March, 10), 0},
		{"exact month", date(2023, time.March, 10), date(2023, time.April, 10), 1},
		{"floors partial month", date(2023, time.March, 20), date(2023, time.April, 10), 0},
		{"year boundary", date(2022, time.November, 1), date(2023, time.February, 1), 3},
		{"to before from", date(2023, time.June, 1), date(2023, time.January, 1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MonthsBetween(tc.from, tc.to); got != tc.want {
				t.Fatalf("MonthsBetween(%v, %v) = %d, want %d", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestMonthsInServiceCountsStartMonthInFull(t *testing.T) {
	// In service 2021-07-01: July through December is six months.
	got := MonthsInService(date(2021, time.July, 1), YearEnd(2021))
	if got != 6 {
		t.Fatalf("expected 6 months, got %d", got)
	}
	// Full calendar year.
	if got := MonthsInService(YearStart(2022), YearEnd(2022)); got != 12 {
		t.Fatalf("expected 12 months, got %d", got)
	}
	// Not yet in service.
	if got := MonthsInService(date(2023, time.May, 1), date(2023, time.April, 30)); got != 0 {
		t.Fatalf("expected 0 months, got %d", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := DaysInMonth(date(2023, time.February, 10)); got != 28 {
		t.Fatalf("expected 28, got %d", got)
	}
	if got := DaysInMonth(date(2024, time.February, 10)); got != 29 {
		t.Fatalf("expected 29, got %d", got)
	}
	if got := DaysInMonth(date(2023, time.July, 1)); got != 31 {
		t.Fatalf("expected 31, got %d", got)
	}
}
