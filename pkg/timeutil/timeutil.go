// Package timeutil holds calendar helpers shared by streak tracking,
// statistics and scheduled jobs. All calendar math happens in the
// platform location (APP_TIMEZONE), never in the server's local zone.
package timeutil

import "time"

// Clock abstracts time.Now so aggregators can be tested at fixed dates.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CalendarDate returns t's date at midnight UTC, suitable for storage in a DATE column.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b in loc.
// It is negative when b is before a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := CalendarDate(a, loc)
	db := CalendarDate(b, loc)
	return int(db.Sub(da).Hours() / 24)
}

// IsSameDay reports whether a and b fall on the same calendar day in loc.
func IsSameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// StartOfWeek returns the Monday midnight of t's week in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
