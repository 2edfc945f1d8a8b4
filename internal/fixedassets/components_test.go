package fixedassets

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func improvement(assetID uuid.UUID, date time.Time, amount float64) Event {
	return Event{
		ID:      uuid.New(),
		AssetID: assetID,
		Type:    EventImprovement,
		Date:    date,
		Amount:  amount,
	}
}

func TestCalculateWithEventsNoImprovements(t *testing.T) {
	a := annualAsset()
	a.ID = uuid.New()

	calc := CalculateWithEvents(a, 2023, nil)
	require.Equal(t, Calculate(a, 2023), calc.Calculation)
	require.InDelta(t, a.OriginalValue, calc.AdjustedOriginCost, 0.001)
}

func TestCalculateWithEventsFoldsImprovementComponent(t *testing.T) {
	a := annualAsset() // 1.2M over 5 years, in service 2021
	a.ID = uuid.New()
	ev := improvement(a.ID, testDate(2023, time.May, 10), 60000)

	// The improvement depreciates over the three years left on the base
	// asset: 20000 per year starting 2023.
	calc := CalculateWithEvents(a, 2023, []Event{ev})
	require.InDelta(t, 1260000, calc.AdjustedOriginCost, 0.001)
	require.InDelta(t, 240000+20000, calc.PeriodQuota, 0.001)
	require.InDelta(t, 480000, calc.OpeningAccumulated, 0.001)
	require.InDelta(t, 720000+20000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 1260000, calc.DepreciableBase, 0.001)
	require.Equal(t, StateActivo, calc.State)
}

func TestCalculateWithEventsIgnoresFutureAndForeignEvents(t *testing.T) {
	a := annualAsset()
	a.ID = uuid.New()
	future := improvement(a.ID, testDate(2024, time.February, 1), 60000)
	foreign := improvement(uuid.New(), testDate(2023, time.May, 10), 60000)
	disposal := Event{ID: uuid.New(), AssetID: a.ID, Type: EventDisposal, Date: testDate(2023, time.May, 10), Amount: 60000}

	calc := CalculateWithEvents(a, 2023, []Event{future, foreign, disposal})
	require.Equal(t, Calculate(a, 2023), calc.Calculation)
	require.InDelta(t, a.OriginalValue, calc.AdjustedOriginCost, 0.001)
}

func TestCalculateWithEventsImprovementNearEndOfLife(t *testing.T) {
	a := annualAsset()
	a.ID = uuid.New()
	// 2025 is the base asset's last year; the component still gets at
	// least one year of life.
	ev := improvement(a.ID, testDate(2025, time.June, 1), 50000)

	calc := CalculateWithEvents(a, 2025, []Event{ev})
	require.InDelta(t, 240000+50000, calc.PeriodQuota, 0.001)
	require.Equal(t, StateAmortizado, calc.State)
}

func TestCalculateToDateWithEventsUsesCutoff(t *testing.T) {
	a := annualAsset()
	a.ID = uuid.New()
	ev := improvement(a.ID, testDate(2023, time.January, 15), 72000)

	// Through 2023-06-30 the base has 28 months at 20000; the component
	// runs 6 months of its 36-month life at 2000.
	calc := CalculateToDateWithEvents(a, testDate(2023, time.June, 30), []Event{ev})
	require.InDelta(t, 560000+12000, calc.ClosingAccumulated, 0.001)
	require.InDelta(t, 1272000, calc.AdjustedOriginCost, 0.001)
}
