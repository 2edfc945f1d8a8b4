package fixedassets

import (
	"time"

	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/shared"
)

// ScheduleRow is one fiscal year of a depreciation schedule.
type ScheduleRow struct {
	Year        int
	Quota       float64
	Accumulated float64
	BookValue   float64
	State       CalcState
}

// MonthlyRow is one calendar month of a depreciation schedule.
type MonthlyRow struct {
	Month       time.Month
	Period      string
	Quota       float64
	Accumulated float64
	BookValue   float64
}

// maxScheduleYears bounds schedule generation against degenerate input.
const maxScheduleYears = 100

// AnnualSchedule produces the year-by-year depreciation table for an
// asset, improvements included, from the in-service year until the
// asset is fully amortized.
func AnnualSchedule(a Asset, events []Event) []ScheduleRow {
	if !a.Depreciable() || a.ServiceDate.IsZero() {
		return nil
	}
	startYear := a.ServiceDate.Year()
	var rows []ScheduleRow
	for year := startYear; year < startYear+maxScheduleYears; year++ {
		calc := CalculateWithEvents(a, year, events)
		rows = append(rows, ScheduleRow{
			Year:        year,
			Quota:       Round2(calc.PeriodQuota),
			Accumulated: Round2(calc.ClosingAccumulated),
			BookValue:   Round2(calc.BookValue),
			State:       calc.State,
		})
		if calc.State == StateAmortizado {
			break
		}
		if calc.PeriodQuota <= AmountTolerance && year > startYear {
			break
		}
	}
	return rows
}

// MonthlySchedule spreads one fiscal year's quota over its active
// months. The in-service month is prorated by remaining days; every
// month is rounded to 2 decimals and the last active month absorbs the
// difference against the annual total so the twelve rows always add up
// to the annual quota exactly.
func MonthlySchedule(a Asset, events []Event, fiscalYear int) []MonthlyRow {
	annual := CalculateWithEvents(a, fiscalYear, events)
	target := Round2(annual.PeriodQuota)
	monthly := annual.AnnualQuota / 12

	rows := make([]MonthlyRow, 0, 12)
	accumulated := annual.OpeningAccumulated
	remaining := target
	lastActive := -1

	for m := time.January; m <= time.December; m++ {
		row := MonthlyRow{Month: m, Period: shared.MonthlyKey(fiscalYear, m)}
		monthEnd := time.Date(fiscalYear, m, 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, -1)
		if remaining > AmountTolerance && !a.ServiceDate.After(monthEnd) {
			raw := monthly
			if a.ServiceDate.Year() == fiscalYear && a.ServiceDate.Month() == m {
				days := shared.DaysInMonth(a.ServiceDate)
				raw = monthly * float64(days-a.ServiceDate.Day()+1) / float64(days)
			}
			if raw > remaining {
				raw = remaining
			}
			row.Quota = Round2(raw)
			remaining = Round2(remaining - row.Quota)
			lastActive = len(rows)
		}
		accumulated += row.Quota
		row.Accumulated = Round2(accumulated)
		row.BookValue = Round2(annual.AdjustedOriginCost - accumulated)
		rows = append(rows, row)
	}

	// Rounding reconciliation: force the last active month to absorb
	// whatever the per-month rounding left over.
	if remaining != 0 && lastActive >= 0 {
		rows[lastActive].Quota = Round2(rows[lastActive].Quota + remaining)
		run := annual.OpeningAccumulated
		for i := range rows {
			run += rows[i].Quota
			rows[i].Accumulated = Round2(run)
			rows[i].BookValue = Round2(annual.AdjustedOriginCost - run)
		}
	}
	return rows
}

// PostedAmortization sums the depreciation actually journaled for an
// asset by scanning the credit lines of its amortization entries
// against the contra account. Compared with the accrued figure from
// Calculate, this reconciles "devengado" versus "contabilizado".
func PostedAmortization(a Asset, entries []ledger.Entry) float64 {
	var posted float64
	for _, entry := range entries {
		if entry.Source.Kind != string(KindAmortization) {
			continue
		}
		for _, line := range entry.Lines {
			if line.AccountID == a.ContraAccountID {
				posted += line.Credit
			}
		}
	}
	return Round2(posted)
}

// Reconciliation compares accrued depreciation with the posted total.
type Reconciliation struct {
	FiscalYear int
	Accrued    float64
	Posted     float64
	Difference float64
}

// Reconcile builds the posted-vs-accrued report for one fiscal year.
func Reconcile(a Asset, events []Event, entries []ledger.Entry, fiscalYear int) Reconciliation {
	accrued := Round2(CalculateWithEvents(a, fiscalYear, events).ClosingAccumulated)
	posted := PostedAmortization(a, entries)
	return Reconciliation{
		FiscalYear: fiscalYear,
		Accrued:    accrued,
		Posted:     posted,
		Difference: Round2(accrued - posted),
	}
}
