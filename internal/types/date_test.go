package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysInMonth(tt.year, tt.month), "%d-%s", tt.year, tt.month)
	}
}

func TestClampedDate(t *testing.T) {
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), ClampedDate(2025, time.February, 31, nil))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), ClampedDate(2024, time.February, 30, nil))
	assert.Equal(t, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), ClampedDate(2025, time.April, 31, nil))
	assert.Equal(t, time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC), ClampedDate(2025, time.May, 15, nil))
}

func TestAddCalendarMonth(t *testing.T) {
	y, m := AddCalendarMonth(2025, time.December)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.January, m)

	y, m = AddCalendarMonth(2025, time.January)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.February, m)
}

func TestDateOfAndMonthHelpers(t *testing.T) {
	ny, err := LoadLocation("EST")
	assert.NoError(t, err)

	// 03:00 UTC on July 1 is still June 30 in New York
	instant := time.Date(2025, time.July, 1, 3, 0, 0, 0, time.UTC)
	d := DateOf(instant, ny)
	assert.Equal(t, 30, d.Day())
	assert.Equal(t, time.June, d.Month())
	assert.True(t, IsLastDayOfMonth(d))
	assert.Equal(t, 1, StartOfMonth(d).Day())
	assert.True(t, SameDate(d, time.Date(2025, time.June, 30, 23, 0, 0, 0, ny)))
}
