package recurrence

import (
	"time"

	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

// This package is the availability calculator for recurring tasks. All
// functions are pure: the caller supplies the completion instant, the rule
// and the clock, and results depend on nothing else. Timestamps are stored
// in UTC; the location argument only decides where the local midnight and
// day boundaries fall.

// ValidateRule rejects rules whose schedule fields are out of range.
func ValidateRule(rule models.RecurrenceRule) error {
	switch rule.Kind {
	case "", models.RecurrenceNone, models.RecurrenceDaily:
		return nil
	case models.RecurrenceWeekly:
		if rule.Weekday < 0 || rule.Weekday > 6 {
			return appErrors.Clone(appErrors.ErrValidation, "weekday must be between 0 (Sunday) and 6")
		}
		return nil
	case models.RecurrenceMonthly:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return appErrors.Clone(appErrors.ErrValidation, "day of month must be between 1 and 31")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown recurrence kind")
	}
}

// NextAvailable computes the instant at which a task completed at
// lastCompletion unlocks again. Nil means the task never re-locks.
//
//   - DAILY: local midnight of the following day.
//   - WEEKLY: local midnight of the next occurrence of the rule's weekday,
//     always strictly after lastCompletion's own day; completing on the
//     target weekday advances a full seven days.
//   - MONTHLY: the rule's day in the following calendar month, clamped to
//     that month's last day when shorter.
func NextAvailable(lastCompletion time.Time, rule models.RecurrenceRule, loc *time.Location) (*time.Time, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	local := lastCompletion.In(loc)

	var next time.Time
	switch rule.Kind {
	case "", models.RecurrenceNone:
		return nil, nil
	case models.RecurrenceDaily:
		next = midnightAfterDays(local, 1)
	case models.RecurrenceWeekly:
		days := (rule.Weekday - int(local.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		next = midnightAfterDays(local, days)
	case models.RecurrenceMonthly:
		year, month := local.Year(), local.Month()
		day := rule.DayOfMonth
		if last := daysInMonth(year, month+1, loc); day > last {
			day = last
		}
		next = time.Date(year, month+1, day, 0, 0, 0, 0, loc)
	}

	utc := next.UTC()
	return &utc, nil
}

// IsAvailable reports whether the cooldown expressed by next has elapsed.
func IsAvailable(next *time.Time, now time.Time) bool {
	if next == nil {
		return true
	}
	return !now.Before(*next)
}

// Progress returns how far the cooldown between last and next has advanced,
// as a whole percentage clamped to [0, 100]. Missing bounds and degenerate
// spans report 100 so callers treat them as unlocked.
func Progress(last, next *time.Time, now time.Time) int {
	if last == nil || next == nil {
		return 100
	}
	span := next.Sub(*last)
	if span <= 0 {
		return 100
	}
	elapsed := now.Sub(*last)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= span {
		return 100
	}
	return int(elapsed * 100 / span)
}

// midnightAfterDays returns local midnight the given number of days after t.
// time.Date normalizes day overflow across month and year boundaries.
func midnightAfterDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}

// daysInMonth uses day zero of the following month, which time.Date
// normalizes to the last day of the requested one.
func daysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
