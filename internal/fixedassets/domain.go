// Package fixedassets implements fixed-asset bookkeeping under Argentine
// GAAP: depreciation schedules, improvement components, and synthesis of
// balanced journal entries kept idempotently in sync with asset records.
package fixedassets

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// SourceModule tags every journal entry generated by this package.
const SourceModule = "fixed_assets"

// OriginType distinguishes assets bought in the current fiscal period
// from assets carried over from prior books.
type OriginType string

const (
	OriginPurchase OriginType = "PURCHASE"
	OriginOpening  OriginType = "OPENING"
)

// Method enumerates depreciation methods.
type Method string

const (
	MethodAnnual  Method = "ANNUAL"  // straight line, full-year quotas
	MethodMonthly Method = "MONTHLY" // straight line, month-prorated quotas
	MethodUnits   Method = "UNITS"   // units of production
	MethodNone    Method = "NONE"    // non-depreciable
)

// Status enumerates the asset lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusInProgress Status = "in_progress"
	StatusSold       Status = "sold"
	StatusAmortized  Status = "amortized"
)

// EventType enumerates post-acquisition occurrences.
type EventType string

const (
	EventImprovement EventType = "IMPROVEMENT"
	EventDisposal    EventType = "DISPOSAL"
	EventRevaluation EventType = "REVALUATION"
	EventDamage      EventType = "DAMAGE"
)

// CalcState is the categorical result of a depreciation calculation.
// Values are kept in Spanish as they surface verbatim in reports.
type CalcState string

const (
	StateActivo     CalcState = "ACTIVO"
	StateAmortizado CalcState = "AMORTIZADO"
	StateNoAmortiza CalcState = "NO_AMORTIZA"
	StateEnProyecto CalcState = "EN_PROYECTO"
)

// EntryKind names the journal entry kinds synthesised by this module.
// The kind is part of the source key used to find previously generated
// entries, so values are wire-stable.
type EntryKind string

const (
	KindAcquisition  EntryKind = "acquisition"
	KindPayment      EntryKind = "payment"
	KindOpening      EntryKind = "opening"
	KindAmortization EntryKind = "amortization"
	KindImprovement  EntryKind = "improvement"
	KindDisposal     EntryKind = "disposal"
	KindRevaluation  EntryKind = "revaluation"
	KindDamage       EntryKind = "damage"
	KindInflation    EntryKind = "inflation_rt6"
)

// PaymentSplit allocates part of an invoice total to a payment account.
type PaymentSplit struct {
	AccountID int64   `json:"account_id"`
	Amount    float64 `json:"amount"`
}

// TaxLine carries a named tax amount (perception or retention) and the
// account it posts against. A zero AccountID defers to name resolution.
type TaxLine struct {
	Name      string  `json:"name"`
	AccountID int64   `json:"account_id"`
	Amount    float64 `json:"amount"`
}

// AcquisitionData holds invoice and settlement detail for PURCHASE assets.
type AcquisitionData struct {
	Date              time.Time      `json:"date"`
	Counterparty      string         `json:"counterparty"`
	NetAmount         float64        `json:"net_amount"`
	VATAmount         float64        `json:"vat_amount"`
	TotalAmount       float64        `json:"total_amount"`
	VATDiscriminated  bool           `json:"vat_discriminated"`
	Splits            []PaymentSplit `json:"splits,omitempty"`
	Perceptions       []TaxLine      `json:"perceptions,omitempty"`
	Retentions        []TaxLine      `json:"retentions,omitempty"`
	FinancialDiscount float64        `json:"financial_discount"`
}

// OpeningData holds carry-over detail for OPENING assets.
type OpeningData struct {
	ImportYear       int     `json:"import_year"`
	InitialAccumDep  float64 `json:"initial_accum_dep"`
	CounterAccountID int64   `json:"counter_account_id"` // optional explicit opening-equity account
}

// AmortizationRef links a fiscal period key to its generated entry.
type AmortizationRef struct {
	Period  string `json:"period"`
	EntryID int64  `json:"entry_id"`
}

// EntryRefs stores back-references to generated journal entries. The
// amortization list is append-only; entries are removed only by the
// asset's cascade delete.
type EntryRefs struct {
	OpeningEntryID     int64             `json:"opening_entry_id,omitempty"`
	AcquisitionEntryID int64             `json:"acquisition_entry_id,omitempty"`
	PaymentEntryID     int64             `json:"payment_entry_id,omitempty"`
	InflationEntryID   int64             `json:"inflation_entry_id,omitempty"`
	Amortizations      []AmortizationRef `json:"amortizations,omitempty"`
}

// AmortizationEntry returns the entry ID recorded for a period key, or zero.
func (r EntryRefs) AmortizationEntry(period string) int64 {
	for _, ref := range r.Amortizations {
		if ref.Period == period {
			return ref.EntryID
		}
	}
	return 0
}

// Asset is the root entity: a tangible or intangible fixed asset tied to
// a cost account and an accumulated-depreciation contra account.
type Asset struct {
	ID                 uuid.UUID
	Name               string
	Category           string
	Intangible         bool
	AccountID          int64 // cost account
	ContraAccountID    int64 // accumulated depreciation contra account
	OriginType         OriginType
	ServiceDate        time.Time // placed in service
	OriginalValue      float64
	ResidualPct        float64
	Method             Method
	LifeYears          int
	LifeMonths         int     // authoritative over LifeYears*12 when positive
	TotalUnits         float64 // units-of-production estimate
	UnitsUsed          float64 // units consumed this period
	Status             Status
	DisposalDate       *time.Time
	DisposalValue      float64
	AdjustsByInflation bool
	Acquisition        *AcquisitionData
	Opening            *OpeningData
	Refs               EntryRefs
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Event represents a post-acquisition occurrence tied to one asset.
// Immutable once its journal entry is generated, except for notes.
type Event struct {
	ID               uuid.UUID
	AssetID          uuid.UUID
	Type             EventType
	Date             time.Time
	Amount           float64
	CounterAccountID int64
	EntryID          int64
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Calculation is the derived depreciation state for an asset at a fiscal
// year end or an arbitrary as-of date. Never persisted.
type Calculation struct {
	ResidualValue      float64
	DepreciableBase    float64 // VA: cost minus residual value
	AnnualQuota        float64
	PeriodQuota        float64
	OpeningAccumulated float64
	ClosingAccumulated float64
	BookValue          float64
	WearPct            float64
	State              CalcState
}

// CalculationWithEvents extends Calculation with improvement components
// folded in and the cost adjusted for capitalised improvements.
type CalculationWithEvents struct {
	Calculation
	AdjustedOriginCost float64
}

var (
	// ErrAssetNotFound indicates a missing asset ID.
	ErrAssetNotFound = errors.New("fixedassets: asset not found")
	// ErrEventNotFound indicates a missing event ID.
	ErrEventNotFound = errors.New("fixedassets: event not found")
	// ErrMissingAssetAccount indicates the asset has no cost account.
	ErrMissingAssetAccount = errors.New("fixedassets: asset account missing")
	// ErrMissingContraAccount indicates the asset has no contra account.
	ErrMissingContraAccount = errors.New("fixedassets: accumulated depreciation account missing")
	// ErrMissingCounterAccount indicates an event without counterpart.
	ErrMissingCounterAccount = errors.New("fixedassets: counterpart account missing")
	// ErrAccountResolution indicates a well-known account could not be
	// resolved or created.
	ErrAccountResolution = errors.New("fixedassets: account resolution failed")
	// ErrNothingToPost indicates the computed entry would be empty or
	// below tolerance.
	ErrNothingToPost = errors.New("fixedassets: nothing to post")
	// ErrMissingIndices indicates absent inflation indices for a period.
	ErrMissingIndices = errors.New("fixedassets: inflation index missing")
	// ErrInvalidAmount indicates a zero or negative monetary input.
	ErrInvalidAmount = errors.New("fixedassets: amount must be positive")
)

// AmountTolerance is the threshold below which residual amounts are not
// worth a journal line.
const AmountTolerance = 0.01

// nonDepreciableCategories lists asset categories excluded from
// depreciation regardless of method.
var nonDepreciableCategories = map[string]bool{
	"TERRENOS": true,
	"LAND":     true,
}

// Depreciable reports whether the asset is subject to depreciation at all.
func (a Asset) Depreciable() bool {
	if a.Method == MethodNone {
		return false
	}
	return !nonDepreciableCategories[a.Category]
}

// TotalLifeMonths returns the useful life in months, honouring the
// LifeMonths override.
func (a Asset) TotalLifeMonths() int {
	if a.LifeMonths > 0 {
		return a.LifeMonths
	}
	return a.LifeYears * 12
}

// Round2 rounds a monetary amount to 2 decimals. The epsilon guards
// against values like 2.675 sitting just under the half-cent boundary in
// binary floating point.
func Round2(x float64) float64 {
	return math.Round(x*100+1e-9) / 100
}
