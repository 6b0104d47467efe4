package models

import (
	"fmt"
	"sort"
	"time"
)

// ScheduleError describes why a date/time slot layout was rejected.
type ScheduleError struct {
	Field   string
	Message string
}

func (e *ScheduleError) Error() string {
	return e.Message
}

const (
	minSlotDuration = 30 * time.Minute
	maxSlotDuration = 18 * time.Hour
	maxScheduleAge  = 365 * 24 * time.Hour
)

// ValidateSchedule checks a new event's date and time slots.
//
// Rules:
// 1. Dates are unique and not in the past
// 2. Dates are scheduled within one year
// 3. Each slot ends after it starts, on the same day
// 4. A slot lasts between 30 minutes and 18 hours
// 5. Slots on the same date do not overlap
func ValidateSchedule(dates []DateSlotInput, now time.Time) error {
	today := now.UTC().Truncate(24 * time.Hour)
	seen := map[string]bool{}

	for i, ds := range dates {
		field := fmt.Sprintf("dateSlots[%d]", i)
		day, err := time.Parse("2006-01-02", ds.Date)
		if err != nil {
			return &ScheduleError{Field: field + ".date", Message: fmt.Sprintf("invalid date %q", ds.Date)}
		}
		if seen[ds.Date] {
			return &ScheduleError{Field: field + ".date", Message: fmt.Sprintf("date %s is listed twice", ds.Date)}
		}
		seen[ds.Date] = true
		if day.Before(today) {
			return &ScheduleError{Field: field + ".date", Message: fmt.Sprintf("date %s is in the past", ds.Date)}
		}
		if day.After(today.Add(maxScheduleAge)) {
			return &ScheduleError{Field: field + ".date", Message: "events cannot be scheduled more than 365 days ahead"}
		}

		type span struct{ start, end time.Time }
		spans := make([]span, 0, len(ds.TimeSlots))
		for j, ts := range ds.TimeSlots {
			slotField := fmt.Sprintf("%s.timeSlots[%d]", field, j)
			start, err := ParseClock(ts.StartTime)
			if err != nil {
				return &ScheduleError{Field: slotField + ".startTime", Message: err.Error()}
			}
			end, err := ParseClock(ts.EndTime)
			if err != nil {
				return &ScheduleError{Field: slotField + ".endTime", Message: err.Error()}
			}
			if !end.After(start) {
				return &ScheduleError{Field: slotField, Message: "slot must end after it starts on the same day"}
			}
			d := end.Sub(start)
			if d < minSlotDuration {
				return &ScheduleError{Field: slotField, Message: "slot must last at least 30 minutes"}
			}
			if d > maxSlotDuration {
				return &ScheduleError{Field: slotField, Message: "slot must not last more than 18 hours"}
			}
			spans = append(spans, span{start, end})
		}

		sort.Slice(spans, func(a, b int) bool { return spans[a].start.Before(spans[b].start) })
		for k := 1; k < len(spans); k++ {
			if spans[k].start.Before(spans[k-1].end) {
				return &ScheduleError{Field: field + ".timeSlots", Message: fmt.Sprintf("time slots overlap on %s", ds.Date)}
			}
		}
	}
	return nil
}

// ParseClock accepts "15:04" or "15:04:05".
func ParseClock(s string) (time.Time, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", s)
}

// FormatClock renders a clock time as zero-padded "HH:MM".
func FormatClock(s string) string {
	t, err := ParseClock(s)
	if err != nil {
		return s
	}
	return t.Format("15:04")
}
