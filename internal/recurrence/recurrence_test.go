package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famboard/chores-api/internal/models"
)

func ptr(t time.Time) *time.Time { return &t }

func TestNextAvailableNoneNeverRelocks(t *testing.T) {
	next, err := NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: models.RecurrenceNone}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, next)

	next, err = NextAvailable(time.Now().UTC(), models.RecurrenceRule{}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNextAvailableDailyMidnightFollowingDay(t *testing.T) {
	rule := models.RecurrenceRule{Kind: models.RecurrenceDaily}
	for _, completed := range []time.Time{
		time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 14, 7, 25, 3, 0, time.UTC),
		time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC),
	} {
		next, err := NextAvailable(completed, rule, time.UTC)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *next,
			"time of day must not shift the boundary")
	}
}

func TestNextAvailableDailyHonorsZoneButStoresUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:30 on March 14 in New York is already March 15 in UTC; the local
	// day boundary decides, the result comes back in UTC.
	completed := time.Date(2024, 3, 15, 3, 30, 0, 0, time.UTC)
	next, err := NextAvailable(completed, models.RecurrenceRule{Kind: models.RecurrenceDaily}, loc)
	require.NoError(t, err)
	require.NotNil(t, next)

	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc).UTC(), *next)
}

func TestNextAvailableWeeklyAdvancesFullWeekOnTargetWeekday(t *testing.T) {
	// 2024-03-11 is a Monday; completing on the target weekday must never
	// yield the same day.
	monday := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	next, err := NextAvailable(monday, models.RecurrenceRule{Kind: models.RecurrenceWeekly, Weekday: 1}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), *next)
}

func TestNextAvailableWeeklyFridayToFollowingMonday(t *testing.T) {
	// 2024-03-15 is a Friday; a Monday rule must land on the Monday after,
	// not the Monday before.
	friday := time.Date(2024, 3, 15, 16, 45, 0, 0, time.UTC)
	next, err := NextAvailable(friday, models.RecurrenceRule{Kind: models.RecurrenceWeekly, Weekday: 1}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), *next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestNextAvailableWeeklySundayRule(t *testing.T) {
	// Weekday 0 is Sunday. 2024-03-13 is a Wednesday.
	wednesday := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	next, err := NextAvailable(wednesday, models.RecurrenceRule{Kind: models.RecurrenceWeekly, Weekday: 0}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), *next)
	assert.Equal(t, time.Sunday, next.Weekday())
}

func TestNextAvailableMonthlyClampsToFebruary(t *testing.T) {
	rule := models.RecurrenceRule{Kind: models.RecurrenceMonthly, DayOfMonth: 31}

	jan := time.Date(2023, 1, 31, 10, 0, 0, 0, time.UTC)
	next, err := NextAvailable(jan, rule, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), *next)

	leapJan := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	next, err = NextAvailable(leapJan, rule, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *next)
}

func TestNextAvailableMonthlyYearRollover(t *testing.T) {
	dec := time.Date(2023, 12, 20, 8, 0, 0, 0, time.UTC)
	next, err := NextAvailable(dec, models.RecurrenceRule{Kind: models.RecurrenceMonthly, DayOfMonth: 15}, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *next)
}

func TestNextAvailableRejectsMalformedRules(t *testing.T) {
	_, err := NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: models.RecurrenceWeekly, Weekday: 7}, time.UTC)
	require.Error(t, err)

	_, err = NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: models.RecurrenceWeekly, Weekday: -1}, time.UTC)
	require.Error(t, err)

	_, err = NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: models.RecurrenceMonthly, DayOfMonth: 0}, time.UTC)
	require.Error(t, err)

	_, err = NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: models.RecurrenceMonthly, DayOfMonth: 32}, time.UTC)
	require.Error(t, err)

	_, err = NextAvailable(time.Now().UTC(), models.RecurrenceRule{Kind: "HOURLY"}, time.UTC)
	require.Error(t, err)
}

func TestIsAvailable(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsAvailable(nil, now))
	assert.True(t, IsAvailable(ptr(now), now), "boundary counts as available")
	assert.True(t, IsAvailable(ptr(now.Add(-time.Second)), now))
	assert.False(t, IsAvailable(ptr(now.Add(time.Second)), now))
}

func TestProgressBounds(t *testing.T) {
	last := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	next := last.Add(24 * time.Hour)

	assert.Equal(t, 0, Progress(ptr(last), ptr(next), last))
	assert.Equal(t, 0, Progress(ptr(last), ptr(next), last.Add(time.Nanosecond)))
	assert.Equal(t, 50, Progress(ptr(last), ptr(next), last.Add(12*time.Hour)))
	assert.Equal(t, 100, Progress(ptr(last), ptr(next), next))
	assert.Equal(t, 100, Progress(ptr(last), ptr(next), next.Add(time.Hour)))
}

func TestProgressMonotonic(t *testing.T) {
	last := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	next := last.Add(7 * 24 * time.Hour)

	prev := 0
	for i := 0; i <= 200; i++ {
		now := last.Add(time.Duration(i) * time.Hour)
		p := Progress(ptr(last), ptr(next), now)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
	assert.Equal(t, 100, prev)
}

func TestProgressDegenerateSpans(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 100, Progress(nil, nil, now))
	assert.Equal(t, 100, Progress(ptr(now), nil, now))
	assert.Equal(t, 100, Progress(nil, ptr(now), now))

	// Identical bounds must not divide by zero.
	assert.Equal(t, 100, Progress(ptr(now), ptr(now), now))
	assert.Equal(t, 100, Progress(ptr(now), ptr(now.Add(-time.Hour)), now))
}
