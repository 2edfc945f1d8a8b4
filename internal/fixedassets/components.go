package fixedassets

import (
	"time"

	"github.com/google/uuid"
	"github.com/sigecon/sigecon/internal/shared"
)

// CalculateWithEvents folds capitalised improvements into the asset's
// depreciation. Each qualifying improvement depreciates as an
// independent component with its own remaining useful life; the base
// asset and all components are then summed into one consolidated
// calculation.
func CalculateWithEvents(a Asset, fiscalYear int, events []Event) CalculationWithEvents {
	return aggregate(a, events, shared.YearEnd(fiscalYear), func(x Asset) Calculation {
		return Calculate(x, fiscalYear)
	})
}

// CalculateToDateWithEvents is the point-in-time variant used for
// disposal accounting: accumulated depreciation and cost-with-
// improvements exactly at the as-of date.
func CalculateToDateWithEvents(a Asset, asOf time.Time, events []Event) CalculationWithEvents {
	return aggregate(a, events, asOf, func(x Asset) Calculation {
		return CalculateToDate(x, asOf)
	})
}

func aggregate(a Asset, events []Event, cutoff time.Time, calc func(Asset) Calculation) CalculationWithEvents {
	base := calc(a)
	out := CalculationWithEvents{Calculation: base, AdjustedOriginCost: a.OriginalValue}

	improvements := qualifyingImprovements(a.ID, events, cutoff)
	if len(improvements) == 0 {
		return out
	}

	cost := a.OriginalValue
	for _, ev := range improvements {
		comp := calc(componentAsset(a, ev))
		cost += ev.Amount
		out.ResidualValue += comp.ResidualValue
		out.DepreciableBase += comp.DepreciableBase
		out.AnnualQuota += comp.AnnualQuota
		out.PeriodQuota += comp.PeriodQuota
		out.OpeningAccumulated += comp.OpeningAccumulated
		out.ClosingAccumulated += comp.ClosingAccumulated
		out.BookValue += comp.BookValue
	}
	out.AdjustedOriginCost = cost

	// Wear and state come from the summed totals, not the components.
	if out.DepreciableBase > 0 {
		out.WearPct = out.ClosingAccumulated / out.DepreciableBase * 100
	}
	switch base.State {
	case StateEnProyecto, StateNoAmortiza:
		out.State = base.State
	default:
		if out.DepreciableBase > 0 && out.ClosingAccumulated >= out.DepreciableBase-AmountTolerance {
			out.State = StateAmortizado
		} else {
			out.State = StateActivo
		}
	}
	return out
}

func qualifyingImprovements(assetID uuid.UUID, events []Event, cutoff time.Time) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type != EventImprovement || ev.Amount <= 0 {
			continue
		}
		if ev.AssetID != assetID || ev.Date.After(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// componentAsset builds the synthetic asset an improvement depreciates
// as: the improvement amount with zero residual, placed in service at
// the event date, over the life remaining on the base asset at that
// moment (never less than one year). Improvements never inherit OPENING
// semantics.
func componentAsset(parent Asset, ev Event) Asset {
	remaining := parent.LifeYears - (ev.Date.Year() - parent.ServiceDate.Year())
	if remaining < 1 {
		remaining = 1
	}
	return Asset{
		ID:            ev.ID,
		Name:          parent.Name,
		Category:      parent.Category,
		OriginType:    OriginPurchase,
		ServiceDate:   ev.Date,
		OriginalValue: ev.Amount,
		ResidualPct:   0,
		Method:        parent.Method,
		LifeYears:     remaining,
		Status:        StatusActive,
	}
}
