package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"weekly", "monthly", "allTime"} {
		p, err := ParsePeriod(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(p))
	}

	_, err := ParsePeriod("daily")
	assert.Error(t, err)

	_, err = ParsePeriod("")
	assert.Error(t, err)
}

func TestPeriod_Window_Weekly(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	start, end := PeriodWeekly.Window(now)

	assert.Equal(t, now.AddDate(0, 0, -7), start)
	assert.Equal(t, now, end)
}

func TestPeriod_Window_Monthly(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	start, end := PeriodMonthly.Window(now)

	assert.Equal(t, now.AddDate(0, 0, -30), start)
	assert.Equal(t, now, end)
}

func TestPeriod_Window_AllTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	start, end := PeriodAllTime.Window(now)

	assert.Equal(t, time.Unix(0, 0).UTC(), start, "allTime должен начинаться с эпохи")
	assert.Equal(t, now, end)
}

func TestPeriod_Window_HalfOpenBoundaries(t *testing.T) {
	// Интервал полуоткрытый [start, end): попытка ровно на границе start
	// входит в окно, ровно на границе end - не входит
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	start, end := PeriodWeekly.Window(now)

	inWindow := func(createdAt time.Time) bool {
		return !createdAt.Before(start) && createdAt.Before(end)
	}

	assert.True(t, inWindow(start), "Попытка ровно в start должна входить в окно")
	assert.True(t, inWindow(start.Add(time.Second)))
	assert.True(t, inWindow(end.Add(-time.Second)))
	assert.False(t, inWindow(end), "Попытка ровно в end не должна входить в окно")
	assert.False(t, inWindow(start.Add(-time.Second)))
}

func TestAllPeriods_CoversEveryTrackedWindow(t *testing.T) {
	periods := AllPeriods()

	require.Len(t, periods, 3)
	assert.Contains(t, periods, PeriodWeekly)
	assert.Contains(t, periods, PeriodMonthly)
	assert.Contains(t, periods, PeriodAllTime)
}
