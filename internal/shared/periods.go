package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period keys tag generated journal entries so re-runs can find them.
// An annual key looks like "2023", a monthly key like "2023-06".

// ErrInvalidPeriodKey indicates a malformed period key.
var ErrInvalidPeriodKey = errors.New("shared: invalid period key")

// AnnualKey builds the period key for a fiscal year.
func AnnualKey(fiscalYear int) string {
	return strconv.Itoa(fiscalYear)
}

// MonthlyKey builds the period key for a fiscal month.
func MonthlyKey(fiscalYear int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", fiscalYear, month)
}

// ParsePeriodKey splits a period key into year and optional month.
// Month is zero for annual keys.
func ParsePeriodKey(key string) (year int, month time.Month, err error) {
	parts := strings.SplitN(key, "-", 2)
	year, err = strconv.Atoi(parts[0])
	if err != nil || year < 1900 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	if len(parts) == 1 {
		return year, 0, nil
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	return year, time.Month(m), nil
}
