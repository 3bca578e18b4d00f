package schedule

import (
	"math"

	apperr "github.com/edgard/remindbot/internal/errors"
)

// Reminder count bounds accepted from users.
const (
	MinReminders = 1
	MaxReminders = 10
)

// ComputeReminderSchedule spreads count reminders evenly between today and
// due. The gap between today and due is split into count+1 equal intervals
// and reminder i lands on today + round(interval*i).
//
// Rounding is half-to-even, so 7.5 becomes 8 and 22.5 becomes 22. The result
// is non-decreasing whenever due is not before today and may contain
// duplicates when count is large relative to the number of days left. A due
// date in the past is not rejected here; callers decide whether to accept it.
func ComputeReminderSchedule(today, due Date, count int) ([]Date, error) {
	if count < MinReminders || count > MaxReminders {
		return nil, apperr.InvalidInputf("reminder count must be between %d and %d, got %d", MinReminders, MaxReminders, count)
	}
	if today.IsZero() || due.IsZero() {
		return nil, apperr.InvalidInputf("today and due date are required")
	}

	daysLeft := today.DaysUntil(due)
	interval := float64(daysLeft) / float64(count+1)

	dates := make([]Date, 0, count)
	for i := 1; i <= count; i++ {
		offset := int(math.RoundToEven(interval * float64(i)))
		dates = append(dates, today.AddDays(offset))
	}
	return dates, nil
}
