// Package inflation stores the monthly price-index series used for RT6
// monetary restatement and serves coefficient lookups to the rest of
// the engine.
package inflation

import (
	"errors"
	"time"
)

// Index is one monthly observation of the price-index series, keyed by
// period in YYYY-MM form.
type Index struct {
	Period    string    `json:"period"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrIndexNotFound indicates a period with no observation.
	ErrIndexNotFound = errors.New("inflation: index not found")
	// ErrInvalidIndex indicates a non-positive index value.
	ErrInvalidIndex = errors.New("inflation: index value must be positive")
)
