package event

import (
	"testing"
	"time"

	"studiopass/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]int{
		"monday":    0,
		"Tuesday":   1,
		"WEDNESDAY": 2,
		"thursday":  3,
		"friday":    4,
		"saturday":  5,
		" sunday ":  6,
	}
	for name, want := range cases {
		got, err := ParseWeekday(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseWeekday("funday")
	assert.ErrorIs(t, err, api.ErrInvalidInput)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("18:30")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"25:00", "12:60", "noon", "9", "9:5:0"} {
		_, _, err := ParseClock(bad)
		assert.ErrorIs(t, err, api.ErrInvalidInput, bad)
	}
}

func TestExpandScheduleCount(t *testing.T) {
	loc := time.UTC
	// Monday 2026-03-02
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	pairs := []DayTime{
		{Day: "monday", Time: "18:00"},
		{Day: "wednesday", Time: "10:00"},
	}

	occs, err := ExpandSchedule(start, pairs, 4, loc)
	require.NoError(t, err)
	require.Len(t, occs, 8)

	for _, o := range occs {
		assert.Equal(t, time.Hour, o.End.Sub(o.Start))
	}
}

func TestExpandScheduleWeekSpacing(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc) // a Monday

	occs, err := ExpandSchedule(start, []DayTime{{Day: "monday", Time: "18:00"}}, 3, loc)
	require.NoError(t, err)
	require.Len(t, occs, 3)

	assert.Equal(t, time.Date(2026, 3, 2, 18, 0, 0, 0, loc), occs[0].Start)
	assert.Equal(t, 7*24*time.Hour, occs[1].Start.Sub(occs[0].Start))
	assert.Equal(t, 7*24*time.Hour, occs[2].Start.Sub(occs[1].Start))
}

func TestExpandScheduleFirstOccurrenceOnOrAfterStart(t *testing.T) {
	loc := time.UTC
	// Thursday 2026-03-05
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, loc)

	// same weekday as the start date lands on the start date itself
	occs, err := ExpandSchedule(start, []DayTime{{Day: "thursday", Time: "09:00"}}, 1, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 0, 0, 0, loc), occs[0].Start)

	// an earlier weekday rolls over to next week
	occs, err = ExpandSchedule(start, []DayTime{{Day: "monday", Time: "09:00"}}, 1, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, loc), occs[0].Start)

	// a later weekday stays within the same week
	occs, err = ExpandSchedule(start, []DayTime{{Day: "sunday", Time: "09:00"}}, 1, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, loc), occs[0].Start)
}

func TestExpandScheduleInvalidInputs(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	_, err := ExpandSchedule(start, []DayTime{{Day: "monday", Time: "18:00"}}, 0, loc)
	assert.ErrorIs(t, err, api.ErrInvalidInput)

	_, err = ExpandSchedule(start, nil, 4, loc)
	assert.ErrorIs(t, err, api.ErrInvalidInput)

	_, err = ExpandSchedule(start, []DayTime{{Day: "blursday", Time: "18:00"}}, 4, loc)
	assert.ErrorIs(t, err, api.ErrInvalidInput)

	_, err = ExpandSchedule(start, []DayTime{{Day: "monday", Time: "18h00"}}, 4, loc)
	assert.ErrorIs(t, err, api.ErrInvalidInput)
}

func TestExpandScheduleSorted(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	occs, err := ExpandSchedule(start, []DayTime{
		{Day: "friday", Time: "08:00"},
		{Day: "monday", Time: "19:00"},
	}, 2, loc)
	require.NoError(t, err)

	for i := 1; i < len(occs); i++ {
		assert.True(t, occs[i].Start.After(occs[i-1].Start))
	}
}
