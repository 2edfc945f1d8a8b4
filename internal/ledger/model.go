package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	ParentID  *int64
	Header    bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountSpec describes an account to create.
type AccountSpec struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
	Header   bool
}

// SourceKey identifies the upstream record that generated an entry.
// Module and Kind name the producer, EntityID the owning record, and
// Period the fiscal period for recurring entries (empty otherwise).
type SourceKey struct {
	Module   string
	Kind     string
	EntityID string
	Period   string
}

// IsZero reports whether the key carries no provenance.
func (k SourceKey) IsZero() bool {
	return k.Module == "" && k.Kind == "" && k.EntityID == "" && k.Period == ""
}

// Line stores a debit or credit amount for an account.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
}

// Entry captures a posted journal entry with its lines.
type Entry struct {
	ID        int64
	Number    int64
	Date      time.Time
	Memo      string
	Source    SourceKey
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DraftLine is a journal line before posting.
type DraftLine struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// EntryDraft groups fields required to create or rewrite a journal entry.
type EntryDraft struct {
	Date   time.Time
	Memo   string
	Source SourceKey
	Lines  []DraftLine
}

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates missing entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAccountNotFound indicates missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
)

// BalanceTolerance is the largest residual, in currency units, an entry
// may carry after 2-decimal rounding and still count as balanced.
const BalanceTolerance = 0.01

// Validate ensures the draft meets posting criteria: at least two lines,
// single-sided lines, non-negative amounts, and balanced totals.
func (d EntryDraft) Validate() error {
	if len(d.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range d.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > BalanceTolerance {
		return fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

// TotalDebit sums the debit side of the draft.
func (d EntryDraft) TotalDebit() float64 {
	var sum float64
	for _, line := range d.Lines {
		sum += line.Debit
	}
	return sum
}

// TotalCredit sums the credit side of the draft.
func (d EntryDraft) TotalCredit() float64 {
	var sum float64
	for _, line := range d.Lines {
		sum += line.Credit
	}
	return sum
}
