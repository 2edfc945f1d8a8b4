package fixedassets

import (
	"math"
	"time"

	"github.com/sigecon/sigecon/internal/shared"
)

// Calculate computes the depreciation state of an asset at the end of a
// fiscal year. Pure: no I/O, no clock.
//
// The closing accumulated value is always clamped to the depreciable
// base and the period quota is derived as closing minus opening, so
// opening + period == closing holds exactly, including the period in
// which depreciation completes.
func Calculate(a Asset, fiscalYear int) Calculation {
	base := newCalculation(a)

	if !a.Depreciable() {
		base.State = StateNoAmortiza
		return base
	}
	if a.Status == StatusInProgress {
		base.State = StateEnProyecto
		return base
	}

	yearEnd := shared.YearEnd(fiscalYear)
	if a.ServiceDate.After(yearEnd) {
		return base // not yet in service: zero depreciation, ACTIVO
	}

	lifeMonths := a.TotalLifeMonths()
	if lifeMonths <= 0 && a.Method != MethodUnits {
		base.State = StateNoAmortiza
		return base
	}

	switch a.Method {
	case MethodUnits:
		return finishCalculation(a, base, 0, unitsQuota(a, base.DepreciableBase))
	case MethodAnnual:
		annual := base.DepreciableBase * 12 / float64(lifeMonths)
		base.AnnualQuota = annual
		if opening, closing, ok := openingOverride(a, fiscalYear, annual); ok {
			return finishCalculation(a, base, opening, closing)
		}
		lifeYears := float64(lifeMonths) / 12
		yearsBefore := math.Min(float64(fiscalYear-a.ServiceDate.Year()), lifeYears)
		if yearsBefore < 0 {
			yearsBefore = 0
		}
		yearsThrough := math.Min(float64(fiscalYear-a.ServiceDate.Year()+1), lifeYears)
		return finishCalculation(a, base, yearsBefore*annual, yearsThrough*annual)
	case MethodMonthly:
		annual := base.DepreciableBase * 12 / float64(lifeMonths)
		base.AnnualQuota = annual
		if opening, closing, ok := openingOverride(a, fiscalYear, annual); ok {
			return finishCalculation(a, base, opening, closing)
		}
		monthly := annual / 12
		priorMonths := shared.MonthsInService(a.ServiceDate, shared.YearEnd(fiscalYear-1))
		if priorMonths > lifeMonths {
			priorMonths = lifeMonths
		}
		start := shared.LaterOf(a.ServiceDate, shared.YearStart(fiscalYear))
		yearMonths := shared.MonthsInService(start, yearEnd)
		if priorMonths+yearMonths > lifeMonths {
			yearMonths = lifeMonths - priorMonths
		}
		opening := float64(priorMonths) * monthly
		return finishCalculation(a, base, opening, opening+float64(yearMonths)*monthly)
	default:
		base.State = StateNoAmortiza
		return base
	}
}

// CalculateToDate computes depreciation at an arbitrary as-of date using
// monthly proration. Used for disposal-date accounting.
func CalculateToDate(a Asset, asOf time.Time) Calculation {
	base := newCalculation(a)

	if !a.Depreciable() {
		base.State = StateNoAmortiza
		return base
	}
	if a.Status == StatusInProgress {
		base.State = StateEnProyecto
		return base
	}
	if a.ServiceDate.After(asOf) {
		return base
	}

	lifeMonths := a.TotalLifeMonths()
	if a.Method == MethodUnits {
		return finishCalculation(a, base, 0, unitsQuota(a, base.DepreciableBase))
	}
	if lifeMonths <= 0 {
		base.State = StateNoAmortiza
		return base
	}

	annual := base.DepreciableBase * 12 / float64(lifeMonths)
	base.AnnualQuota = annual
	monthly := annual / 12

	if a.OriginType == OriginOpening && a.Opening != nil && a.Opening.InitialAccumDep > 0 {
		opening := openingAccumAtYear(a, asOf.Year(), annual)
		yearMonths := shared.MonthsInService(shared.YearStart(asOf.Year()), asOf)
		return finishCalculation(a, base, opening, opening+float64(yearMonths)*monthly)
	}

	priorMonths := shared.MonthsInService(a.ServiceDate, shared.YearEnd(asOf.Year()-1))
	if priorMonths > lifeMonths {
		priorMonths = lifeMonths
	}
	totalMonths := shared.MonthsInService(a.ServiceDate, asOf)
	if totalMonths > lifeMonths {
		totalMonths = lifeMonths
	}
	return finishCalculation(a, base, float64(priorMonths)*monthly, float64(totalMonths)*monthly)
}

func newCalculation(a Asset) Calculation {
	va := a.OriginalValue * (1 - a.ResidualPct/100)
	return Calculation{
		ResidualValue:   a.OriginalValue - va,
		DepreciableBase: va,
		BookValue:       a.OriginalValue,
		State:           StateActivo,
	}
}

// unitsQuota computes the units-of-production period quota. Accumulated
// depreciation from prior periods is not tracked for this method: only
// the units consumed in the current period are known. Documented
// limitation carried over from the reference behaviour.
func unitsQuota(a Asset, va float64) float64 {
	if a.TotalUnits <= 0 {
		return 0
	}
	return va / a.TotalUnits * a.UnitsUsed
}

// openingOverride applies the OPENING-origin pass-through: when explicit
// initial accumulated depreciation is carried from prior books, the
// opening balance is projected linearly from the import year and the
// full annual quota applies without proration.
func openingOverride(a Asset, fiscalYear int, annual float64) (opening, closing float64, ok bool) {
	if a.OriginType != OriginOpening || a.Opening == nil || a.Opening.InitialAccumDep <= 0 {
		return 0, 0, false
	}
	opening = openingAccumAtYear(a, fiscalYear, annual)
	return opening, opening + annual, true
}

func openingAccumAtYear(a Asset, fiscalYear int, annual float64) float64 {
	importYear := a.Opening.ImportYear
	if importYear == 0 {
		importYear = a.ServiceDate.Year()
	}
	years := fiscalYear - importYear
	if years < 0 {
		years = 0
	}
	return a.Opening.InitialAccumDep + float64(years)*annual
}

// finishCalculation clamps accumulated values to the depreciable base,
// derives the period quota, and classifies the final state.
func finishCalculation(a Asset, c Calculation, opening, closing float64) Calculation {
	va := c.DepreciableBase
	if opening > va {
		opening = va
	}
	if closing > va {
		closing = va
	}
	if closing < opening {
		closing = opening
	}
	c.OpeningAccumulated = opening
	c.ClosingAccumulated = closing
	c.PeriodQuota = closing - opening
	c.BookValue = a.OriginalValue - closing
	if va > 0 {
		c.WearPct = closing / va * 100
	}
	if closing >= va-AmountTolerance && va > 0 {
		c.State = StateAmortizado
	} else {
		c.State = StateActivo
	}
	return c
}
