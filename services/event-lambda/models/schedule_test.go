package models

import (
	"strings"
	"testing"
	"time"
)

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	slot := func(start, end string) TimeSlotInput {
		return TimeSlotInput{StartTime: start, EndTime: end, MaxCapacity: 50}
	}

	tests := []struct {
		name     string
		dates    []DateSlotInput
		errorMsg string
	}{
		{
			name:  "valid schedule",
			dates: []DateSlotInput{{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("10:00", "12:00"), slot("18:00", "21:00")}}},
		},
		{
			name:  "today is allowed",
			dates: []DateSlotInput{{Date: "2026-10-14", TimeSlots: []TimeSlotInput{slot("18:00", "21:00")}}},
		},
		{
			name:     "past date",
			dates:    []DateSlotInput{{Date: "2026-10-13", TimeSlots: []TimeSlotInput{slot("18:00", "21:00")}}},
			errorMsg: "in the past",
		},
		{
			name:     "too far ahead",
			dates:    []DateSlotInput{{Date: "2027-12-01", TimeSlots: []TimeSlotInput{slot("18:00", "21:00")}}},
			errorMsg: "365 days",
		},
		{
			name: "duplicate date",
			dates: []DateSlotInput{
				{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("10:00", "12:00")}},
				{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("18:00", "21:00")}},
			},
			errorMsg: "listed twice",
		},
		{
			name:     "end before start",
			dates:    []DateSlotInput{{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("21:00", "18:00")}}},
			errorMsg: "end after it starts",
		},
		{
			name:     "too short",
			dates:    []DateSlotInput{{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("18:00", "18:15")}}},
			errorMsg: "30 minutes",
		},
		{
			name:     "overlap",
			dates:    []DateSlotInput{{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("18:00", "21:00"), slot("20:00", "22:00")}}},
			errorMsg: "overlap",
		},
		{
			name:     "bad clock",
			dates:    []DateSlotInput{{Date: "2026-11-21", TimeSlots: []TimeSlotInput{slot("6pm", "21:00")}}},
			errorMsg: "invalid time format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.dates, now)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("ValidateSchedule() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateSchedule() expected error containing %q", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("ValidateSchedule() error = %v, want it to contain %q", err, tt.errorMsg)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock("9:30"); got != "09:30" {
		t.Errorf("FormatClock(9:30) = %s", got)
	}
	if got := FormatClock("junk"); got != "junk" {
		t.Errorf("FormatClock(junk) = %s", got)
	}
}
