package event

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"studiopass/internal/api"
)

// EventDuration is the fixed length of every auto-generated class event.
const EventDuration = time.Hour

var weekdayIndex = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// ParseWeekday maps a weekday name to its index, Monday=0 through Sunday=6.
func ParseWeekday(name string) (int, error) {
	idx, ok := weekdayIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", api.ErrInvalidInput, name)
	}
	return idx, nil
}

// ParseClock parses an "HH:MM" wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed time %q", api.ErrInvalidInput, s)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: malformed time %q", api.ErrInvalidInput, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: malformed time %q", api.ErrInvalidInput, s)
	}

	return hour, minute, nil
}

// mondayIndex converts Go's Sunday=0 weekday to Monday=0.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ExpandSchedule turns the (weekday, time) pairs into concrete one-hour
// occurrences: for each pair, the first matching date on or after startDate,
// then one per week for repeatWeeks weeks. It always yields exactly
// len(pairs) x repeatWeeks occurrences, sorted by start time.
func ExpandSchedule(startDate time.Time, pairs []DayTime, repeatWeeks int, loc *time.Location) ([]Occurrence, error) {
	if repeatWeeks < 1 {
		return nil, fmt.Errorf("%w: repeat weeks must be at least 1", api.ErrInvalidInput)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: schedule needs at least one day/time pair", api.ErrInvalidInput)
	}

	startDate = startDate.In(loc)
	day0 := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)

	occurrences := make([]Occurrence, 0, len(pairs)*repeatWeeks)
	for _, pair := range pairs {
		wd, err := ParseWeekday(pair.Day)
		if err != nil {
			return nil, err
		}
		hour, minute, err := ParseClock(pair.Time)
		if err != nil {
			return nil, err
		}

		daysAhead := (wd - mondayIndex(day0.Weekday()) + 7) % 7
		first := day0.AddDate(0, 0, daysAhead)

		for week := 0; week < repeatWeeks; week++ {
			d := first.AddDate(0, 0, 7*week)
			start := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
			occurrences = append(occurrences, Occurrence{
				Start: start,
				End:   start.Add(EventDuration),
			})
		}
	}

	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	return occurrences, nil
}
