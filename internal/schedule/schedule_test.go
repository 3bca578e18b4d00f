package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/schedule"
)

func d(y int, m time.Month, day int) schedule.Date {
	return schedule.NewDate(y, m, day)
}

func TestComputeReminderSchedule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		today schedule.Date
		due   schedule.Date
		count int
		want  []schedule.Date
	}{
		{
			name:  "thirty days three reminders rounds half to even",
			today: d(2025, time.January, 1),
			due:   d(2025, time.January, 31),
			count: 3,
			want:  []schedule.Date{d(2025, time.January, 9), d(2025, time.January, 16), d(2025, time.January, 23)},
		},
		{
			name:  "single reminder at the midpoint",
			today: d(2025, time.March, 1),
			due:   d(2025, time.March, 11),
			count: 1,
			want:  []schedule.Date{d(2025, time.March, 6)},
		},
		{
			name:  "duplicates kept when days are scarce",
			today: d(2025, time.May, 1),
			due:   d(2025, time.May, 3),
			count: 4,
			want: []schedule.Date{
				d(2025, time.May, 1), d(2025, time.May, 2), d(2025, time.May, 2), d(2025, time.May, 3),
			},
		},
		{
			name:  "due today collapses onto today",
			today: d(2025, time.June, 10),
			due:   d(2025, time.June, 10),
			count: 2,
			want:  []schedule.Date{d(2025, time.June, 10), d(2025, time.June, 10)},
		},
		{
			name:  "crosses month and year boundaries",
			today: d(2024, time.December, 20),
			due:   d(2025, time.January, 9),
			count: 1,
			want:  []schedule.Date{d(2024, time.December, 30)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := schedule.ComputeReminderSchedule(tc.today, tc.due, tc.count)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeReminderScheduleProperties(t *testing.T) {
	t.Parallel()

	today := d(2025, time.January, 1)
	for daysLeft := 0; daysLeft <= 60; daysLeft++ {
		due := today.AddDays(daysLeft)
		for count := schedule.MinReminders; count <= schedule.MaxReminders; count++ {
			got, err := schedule.ComputeReminderSchedule(today, due, count)
			require.NoError(t, err)
			require.Len(t, got, count)
			for i, date := range got {
				assert.False(t, date.Before(today), "days=%d count=%d reminder %d before today", daysLeft, count, i)
				assert.False(t, date.After(due), "days=%d count=%d reminder %d after due", daysLeft, count, i)
				if i > 0 {
					assert.False(t, date.Before(got[i-1]), "days=%d count=%d not non-decreasing", daysLeft, count)
				}
			}
		}
	}
}

func TestComputeReminderScheduleRejectsCount(t *testing.T) {
	t.Parallel()

	for _, count := range []int{-1, 0, 11, 100} {
		_, err := schedule.ComputeReminderSchedule(d(2025, time.January, 1), d(2025, time.February, 1), count)
		require.Error(t, err)
		assert.True(t, apperr.IsInvalidInput(err), "count %d", count)
	}
}

func TestComputeReminderSchedulePastDue(t *testing.T) {
	t.Parallel()

	got, err := schedule.ComputeReminderSchedule(d(2025, time.January, 11), d(2025, time.January, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, []schedule.Date{d(2025, time.January, 6)}, got)
}

func TestComputeReminderScheduleFarFutureDue(t *testing.T) {
	t.Parallel()

	today := d(2025, time.January, 1)
	due := d(9999, time.December, 31)
	assert.Equal(t, 2912807, today.DaysUntil(due))

	got, err := schedule.ComputeReminderSchedule(today, due, 1)
	require.NoError(t, err)
	assert.Equal(t, []schedule.Date{d(6012, time.July, 2)}, got)
}

func TestParseUserDate(t *testing.T) {
	t.Parallel()

	valid := map[string]schedule.Date{
		"jul 31 2025":       d(2025, time.July, 31),
		"Jul 31 2025":       d(2025, time.July, 31),
		"JUL 1 2025":        d(2025, time.July, 1),
		"  aug   05  2025 ": d(2025, time.August, 5),
		"September 9, 2025": d(2025, time.September, 9),
		"2025-12-24":        d(2025, time.December, 24),
	}
	for input, want := range valid {
		got, err := schedule.ParseUserDate(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "   ", "tomorrow", "31/07/2025", "feb 30 2025"} {
		_, err := schedule.ParseUserDate(input)
		require.Error(t, err, input)
		assert.True(t, apperr.IsInvalidInput(err), input)
	}
}

func TestDateScanAndValue(t *testing.T) {
	t.Parallel()

	date := d(2025, time.July, 4)
	v, err := date.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-07-04", v)

	var scanned schedule.Date
	require.NoError(t, scanned.Scan("2025-07-04"))
	assert.Equal(t, date, scanned)
	require.NoError(t, scanned.Scan(time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, date, scanned)
	assert.Error(t, scanned.Scan(42))

	assert.Equal(t, 3, date.DaysUntil(d(2025, time.July, 7)))
	assert.Equal(t, -4, date.DaysUntil(d(2025, time.June, 30)))
	assert.Equal(t, "Friday, Jul 04, 2025", date.Format(schedule.DisplayLayout))
}

func TestToday(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, d(2025, time.March, 2), schedule.Today(now, loc))
	assert.Equal(t, d(2025, time.March, 1), schedule.Today(now, nil))
}
