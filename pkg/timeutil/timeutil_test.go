package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysBetween(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// 23:30 in Bogota is already the next day in UTC.
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, bogota)
	nextMorning := time.Date(2026, 3, 11, 8, 0, 0, 0, bogota)

	assert.Equal(t, 1, DaysBetween(late, nextMorning, bogota))
	assert.Equal(t, 0, DaysBetween(late.UTC(), nextMorning.UTC(), time.UTC))
	assert.Equal(t, -1, DaysBetween(nextMorning, late, bogota))
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2026, 3, 10, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	assert.True(t, IsSameDay(a, b, time.UTC))
	assert.False(t, IsSameDay(a, b.Add(time.Second), time.UTC))
}

func TestCalendarDate(t *testing.T) {
	ts := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), CalendarDate(ts, nil))
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.UTC))
}

func TestFixedClock(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, FixedClock{T: ts}.Now())
}
