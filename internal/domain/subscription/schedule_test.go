package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMarksSundaysAndHolidays(t *testing.T) {
	// 2024-06-01 is a Saturday
	start := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	holidays := map[string]bool{"2024-06-04": true}

	days := Generate(start, 7, holidays)
	require.Len(t, days, 7)

	want := []struct {
		date   string
		number int
		status DayStatus
	}{
		{"2024-06-01", 1, DayPending},
		{"2024-06-02", 0, DayNA}, // Sunday
		{"2024-06-03", 2, DayPending},
		{"2024-06-04", 0, DayNA}, // holiday
		{"2024-06-05", 3, DayPending},
		{"2024-06-06", 4, DayPending},
		{"2024-06-07", 5, DayPending},
	}
	for i, w := range want {
		assert.Equal(t, w.date, days[i].Date)
		assert.Equal(t, w.number, days[i].DayNumber, w.date)
		assert.Equal(t, w.status, days[i].Status, w.date)
	}
}

func TestGenerateThirtyDayWindow(t *testing.T) {
	start := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	days := Generate(start, 30, nil)
	require.Len(t, days, 30)

	assert.Equal(t, "2024-02-20", days[0].Date)
	assert.Equal(t, "2024-03-20", days[29].Date, "window crosses the leap day")

	last := 0
	sundays := 0
	for _, d := range days {
		if d.Status == DayNA {
			sundays++
			assert.Zero(t, d.DayNumber)
			continue
		}
		assert.Equal(t, last+1, d.DayNumber, "deliverable days are numbered consecutively")
		last = d.DayNumber
	}
	assert.Equal(t, 4, sundays)
	assert.Equal(t, 26, last)
}

func TestGenerateEmptyWindow(t *testing.T) {
	assert.Empty(t, Generate(time.Now(), 0, nil))
}

func TestWindowStartIsNextLocalDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 10th is already the 11th in IST
	paid := time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC)

	start := WindowStart(paid, ist)
	assert.Equal(t, "2024-06-12", start.Format(DateLayout))
	assert.Equal(t, 0, start.Hour())

	assert.Equal(t, "2024-06-11", WindowStart(paid, nil).Format(DateLayout))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(DayPending, DayOutForDelivery))
	assert.True(t, canTransition(DayPending, DayDelivered))
	assert.True(t, canTransition(DayOutForDelivery, DayDelivered))
	assert.False(t, canTransition(DayDelivered, DayPending))
	assert.False(t, canTransition(DayNA, DayDelivered))
	assert.False(t, canTransition(DayOutForDelivery, DayPending))
}
