// Package schedule holds the calendar arithmetic shared by the recurring generator,
// the cashflow projector and amortization schedules. Every function returns a new
// time value and never touches its arguments.
package schedule

import "time"

type Frequency string

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
	// Custom has no rule of its own yet and is scheduled like Monthly.
	Custom Frequency = "CUSTOM"
)

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly, Custom:
		return true
	}
	return false
}

// NextRun returns the occurrence after from. WEEKLY and YEARLY move strictly
// forward; MONTHLY and CUSTOM move one calendar month and clamp the day to
// min(dueDay, days in that month). Without a due day the day of from is kept.
func NextRun(from time.Time, frequency Frequency, dueDay *int) time.Time {
	switch frequency {
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Yearly:
		return AddMonthsOnDay(from, 12, from.Day())
	default:
		// MONTHLY, and CUSTOM until it has its own rule.
		day := from.Day()
		if dueDay != nil {
			day = *dueDay
		}
		return AddMonthsOnDay(from, 1, day)
	}
}

// AddMonthsOnDay moves t by months calendar months and places it on day, clamped
// to the length of the target month. Time of day and location are preserved.
func AddMonthsOnDay(t time.Time, months, day int) time.Time {
	year, month := t.Year(), t.Month()+time.Month(months)
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return first.AddDate(0, 0, clampDay(first.Year(), first.Month(), day)-1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// OccurrenceDate is the date a generated transaction gets for a period:
// (year, month, dueDay or 1), clamped to the month length.
func OccurrenceDate(year int, month time.Month, dueDay *int, loc *time.Location) time.Time {
	day := 1
	if dueDay != nil {
		day = *dueDay
	}
	return time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, loc)
}

// MonthBounds returns [first day of month, first day of next month).
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func clampDay(year int, month time.Month, day int) int {
	if day < 1 {
		return 1
	}
	if last := DaysIn(year, month); day > last {
		return last
	}
	return day
}

// CalendarDay returns midnight UTC of the calendar day t falls on in its own
// location. Stored dates are compared in this form.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthsBetween counts calendar month boundaries from a to b, ignoring days.
// It is negative when b is in an earlier month.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
