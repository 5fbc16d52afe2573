package dimension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martbuild/pkg/models"
)

func dateBuilder(t *testing.T, cfg models.DateDimension) *Builder {
	t.Helper()
	b, err := NewBuilder(models.Pipeline{DateDimension: cfg})
	require.NoError(t, err)
	return b
}

func defaultDateCfg() models.DateDimension {
	return models.DateDimension{
		StartDate:   "2025-01-01",
		Days:        730,
		WeekendDays: []string{"Saturday", "Sunday"},
		HolidaySeason: models.HolidaySeason{
			FullMonths:   []int{12},
			PartialMonth: 11,
			FromDay:      24,
		},
	}
}

func TestDatesWindow(t *testing.T) {
	rows, index, err := dateBuilder(t, defaultDateCfg()).Dates()
	require.NoError(t, err)

	require.Len(t, rows, 730)
	assert.Equal(t, 730, index.Len())

	first := rows[0]
	assert.Equal(t, int64(20250101), first.DateKey)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, 1, first.Quarter)
	assert.Equal(t, "January", first.MonthName)

	last := rows[len(rows)-1]
	assert.Equal(t, int64(20261231), last.DateKey)
}

func TestDatesWeekendFlag(t *testing.T) {
	rows, _, err := dateBuilder(t, defaultDateCfg()).Dates()
	require.NoError(t, err)

	// 2025-01-04 is a Saturday, 2025-01-06 a Monday
	assert.True(t, rows[3].IsWeekend)
	assert.Equal(t, 6, rows[3].DayOfWeek)
	assert.False(t, rows[5].IsWeekend)
	assert.Equal(t, 1, rows[5].DayOfWeek)

	// Sunday maps to ISO 7
	assert.True(t, rows[4].IsWeekend)
	assert.Equal(t, 7, rows[4].DayOfWeek)
}

func TestDatesHolidaySeason(t *testing.T) {
	rows, _, err := dateBuilder(t, defaultDateCfg()).Dates()
	require.NoError(t, err)

	byDate := make(map[string]models.DateDim, len(rows))
	for _, r := range rows {
		byDate[r.Date.Format("2006-01-02")] = r
	}

	assert.False(t, byDate["2025-11-23"].IsHolidaySeason)
	assert.True(t, byDate["2025-11-24"].IsHolidaySeason)
	assert.True(t, byDate["2025-12-01"].IsHolidaySeason)
	assert.True(t, byDate["2025-12-31"].IsHolidaySeason)
	assert.False(t, byDate["2026-01-01"].IsHolidaySeason)
}

func TestDatesIndexResolution(t *testing.T) {
	_, index, err := dateBuilder(t, defaultDateCfg()).Dates()
	require.NoError(t, err)

	key, ok := DateIndexFor(index, time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, int64(20250615), key)

	_, ok = DateIndexFor(index, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestDatesInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.DateDimension)
	}{
		{"bad start date", func(c *models.DateDimension) { c.StartDate = "01/01/2025" }},
		{"zero days", func(c *models.DateDimension) { c.Days = 0 }},
		{"unknown weekend day", func(c *models.DateDimension) { c.WeekendDays = []string{"Caturday"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultDateCfg()
			tt.mutate(&cfg)
			_, _, err := dateBuilder(t, cfg).Dates()
			assert.Error(t, err)
		})
	}
}
