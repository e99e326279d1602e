package schedule

import "time"

// WeekRange returns the Sunday-to-Saturday week containing d as 7 consecutive
// dates, midnight-truncated in d's location.
func WeekRange(d time.Time) [7]time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))

	var week [7]time.Time
	for i := 0; i < 7; i++ {
		week[i] = start.AddDate(0, 0, i)
	}
	return week
}

// ShiftWeek moves a selected date by whole weeks.
func ShiftWeek(d time.Time, delta int) time.Time {
	return d.AddDate(0, 0, 7*delta)
}

// ShiftDay moves a selected date by single days.
func ShiftDay(d time.Time, delta int) time.Time {
	return d.AddDate(0, 0, delta)
}
