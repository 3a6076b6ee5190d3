// utils/dates.go
package utils

import "time"

func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AddMonthClamped moves t one calendar month forward keeping the day of month,
// clamped to the last day of the target month (Jan 31 -> Feb 28/29).
// time.AddDate would overflow into the following month instead.
func AddMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	target := month + 1
	if target > time.December {
		target = time.January
		year++
	}
	if last := DaysInMonth(year, target, t.Location()); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, target, day, hour, min, sec, t.Nanosecond(), t.Location())
}
