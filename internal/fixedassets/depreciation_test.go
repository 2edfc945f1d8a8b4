package fixedassets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func annualAsset() Asset {
	return Asset{
		Name:          "Camioneta Toyota Hilux",
		Category:      "RODADOS",
		OriginType:    OriginPurchase,
		ServiceDate:   testDate(2021, time.March, 10),
		OriginalValue: 1200000,
		Method:        MethodAnnual,
		LifeYears:     5,
		Status:        StatusActive,
	}
}

func TestCalculateAnnualFirstYear(t *testing.T) {
	a := annualAsset()
	calc := Calculate(a, 2021)

	require.Equal(t, StateActivo, calc.State)
	require.InDelta(t, 240000, calc.AnnualQuota, 0.001)
	require.InDelta(t, 0, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 240000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 240000, calc.PeriodQuota, 0.001)
	require.InDelta(t, 960000, calc.BookValue, 0.001)
	require.InDelta(t, 20, calc.WearPct, 0.001)
}

func TestCalculateAnnualFinalYearClamps(t *testing.T) {
	a := annualAsset()

	calc := Calculate(a, 2025)
	require.Equal(t, StateAmortizado, calc.State)
	require.InDelta(t, 960000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 1200000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 240000, calc.PeriodQuota, 0.001)
	require.InDelta(t, 0, calc.BookValue, 0.001)

	// Past end of life: opening and closing pinned at the base, zero quota.
	calc = Calculate(a, 2026)
	require.Equal(t, StateAmortizado, calc.State)
	require.InDelta(t, 1200000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 1200000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 0, calc.PeriodQuota, 0.001)
}

func TestCalculateAnnualAdditivity(t *testing.T) {
	a := annualAsset()
	for year := 2021; year <= 2027; year++ {
		calc := Calculate(a, year)
		require.InDelta(t, calc.ClosingAccumulated, calc.OpeningAccumulated+calc.PeriodQuota, 0.001,
			"opening + period must equal closing in %d", year)
	}
}

func TestCalculateResidualValueExcludedFromBase(t *testing.T) {
	a := annualAsset()
	a.OriginalValue = 100000
	a.ResidualPct = 10

	calc := Calculate(a, 2021)
	require.InDelta(t, 10000, calc.ResidualValue, 0.001)
	require.InDelta(t, 90000, calc.DepreciableBase, 0.001)
	require.InDelta(t, 18000, calc.AnnualQuota, 0.001)

	// Fully amortized book value stops at the residual.
	calc = Calculate(a, 2030)
	require.Equal(t, StateAmortizado, calc.State)
	require.InDelta(t, 10000, calc.BookValue, 0.001)
}

func TestCalculateMonthlyProratesFirstYear(t *testing.T) {
	a := Asset{
		Name:          "Servidor Dell",
		Category:      "EQUIPOS",
		OriginType:    OriginPurchase,
		ServiceDate:   testDate(2021, time.July, 1),
		OriginalValue: 120000,
		Method:        MethodMonthly,
		LifeYears:     10,
		Status:        StatusActive,
	}

	// July through December: six months at 1000.
	calc := Calculate(a, 2021)
	require.InDelta(t, 12000, calc.AnnualQuota, 0.001)
	require.InDelta(t, 0, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 6000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 6000, calc.PeriodQuota, 0.001)

	// Second year gets the full twelve months.
	calc = Calculate(a, 2022)
	require.InDelta(t, 6000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 18000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 12000, calc.PeriodQuota, 0.001)

	// Final year takes only the six months left of useful life.
	calc = Calculate(a, 2031)
	require.Equal(t, StateAmortizado, calc.State)
	require.InDelta(t, 114000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 120000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 6000, calc.PeriodQuota, 0.001)
}

func TestCalculateLifeMonthsOverridesLifeYears(t *testing.T) {
	a := annualAsset()
	a.LifeYears = 5
	a.LifeMonths = 36

	calc := Calculate(a, 2021)
	require.InDelta(t, 400000, calc.AnnualQuota, 0.001)
}

func TestCalculateOpeningOverrideProjectsImportYear(t *testing.T) {
	a := Asset{
		Name:          "Torno CNC",
		Category:      "MAQUINARIAS",
		OriginType:    OriginOpening,
		ServiceDate:   testDate(2018, time.May, 20),
		OriginalValue: 100000,
		Method:        MethodAnnual,
		LifeYears:     10,
		Status:        StatusActive,
		Opening:       &OpeningData{ImportYear: 2020, InitialAccumDep: 30000},
	}

	// 2023 is three years after import: 30000 + 3*10000 opening, full
	// annual quota with no proration.
	calc := Calculate(a, 2023)
	require.InDelta(t, 60000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 70000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 10000, calc.PeriodQuota, 0.001)

	// Same for monthly method: explicit carried balances bypass proration.
	a.Method = MethodMonthly
	calc = Calculate(a, 2023)
	require.InDelta(t, 60000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 10000, calc.PeriodQuota, 0.001)
}

func TestCalculateUnitsOfProduction(t *testing.T) {
	a := Asset{
		Name:          "Matriz de inyección",
		Category:      "MAQUINARIAS",
		OriginType:    OriginPurchase,
		ServiceDate:   testDate(2022, time.January, 15),
		OriginalValue: 100000,
		Method:        MethodUnits,
		TotalUnits:    1000,
		UnitsUsed:     150,
		Status:        StatusActive,
	}

	calc := Calculate(a, 2023)
	require.Equal(t, StateActivo, calc.State)
	require.InDelta(t, 15000, calc.PeriodQuota, 0.001)
	require.InDelta(t, 0, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 15000, calc.ClosingAccumulated, 0.001)

	a.TotalUnits = 0
	calc = Calculate(a, 2023)
	require.InDelta(t, 0, calc.PeriodQuota, 0.001)
}

func TestCalculateNonDepreciable(t *testing.T) {
	a := annualAsset()
	a.Category = "TERRENOS"
	require.Equal(t, StateNoAmortiza, Calculate(a, 2023).State)

	a = annualAsset()
	a.Method = MethodNone
	require.Equal(t, StateNoAmortiza, Calculate(a, 2023).State)

	a = annualAsset()
	a.LifeYears = 0
	require.Equal(t, StateNoAmortiza, Calculate(a, 2023).State)
}

func TestCalculateInProgress(t *testing.T) {
	a := annualAsset()
	a.Status = StatusInProgress
	calc := Calculate(a, 2023)
	require.Equal(t, StateEnProyecto, calc.State)
	require.InDelta(t, 0, calc.PeriodQuota, 0.001)
}

func TestCalculateBeforeServiceDate(t *testing.T) {
	a := annualAsset() // in service 2021
	calc := Calculate(a, 2020)
	require.Equal(t, StateActivo, calc.State)
	require.InDelta(t, 0, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, a.OriginalValue, calc.BookValue, 0.001)
}

func TestCalculateToDateProratesByMonths(t *testing.T) {
	a := annualAsset() // 1.2M over 5 years, in service 2021-03-10

	// Through 2024-06-30: 40 months in service at 20000 each.
	calc := CalculateToDate(a, testDate(2024, time.June, 30))
	require.InDelta(t, 800000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 680000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 120000, calc.PeriodQuota, 0.001)
	require.InDelta(t, 400000, calc.BookValue, 0.001)
}

func TestCalculateToDateClampsAtEndOfLife(t *testing.T) {
	a := annualAsset()
	calc := CalculateToDate(a, testDate(2030, time.December, 31))
	require.Equal(t, StateAmortizado, calc.State)
	require.InDelta(t, 1200000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 0, calc.BookValue, 0.001)
}
