package models

import "time"

// Attendance is one redeemed entry code. Event and member fields are
// copied in so reports survive later edits.
type Attendance struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"bookingId"`
	BookingCode string    `json:"bookingCode"`
	MemberCode  string    `json:"memberCode"`
	EventID     string    `json:"eventId"`
	EventTitle  string    `json:"eventTitle"`
	MemberName  string    `json:"memberName"`
	MemberEmail string    `json:"memberEmail,omitempty"`
	MemberPhone string    `json:"memberPhone,omitempty"`
	ValidatedBy string    `json:"validatedBy"`
	ValidatedAt time.Time `json:"validatedAt"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
}

type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type ValidateRequest struct {
	Code string `json:"code"`
}

// Outcome of a door validation.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
)

// RosterEntry is one member of the booking and whether they are in.
type RosterEntry struct {
	Name        string     `json:"name"`
	MemberCode  string     `json:"memberCode"`
	Primary     bool       `json:"primary"`
	Validated   bool       `json:"validated"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	ValidatedBy string     `json:"validatedBy,omitempty"`
}

// ValidationResult is returned for both outcomes. History is only set on
// denial and lists the earlier validations of the code, oldest first.
type ValidationResult struct {
	Success       bool          `json:"success"`
	Outcome       Outcome       `json:"outcome"`
	Message       string        `json:"message"`
	BookingCode   string        `json:"bookingCode"`
	ValidatedCode string        `json:"validatedCode"`
	EventID       string        `json:"eventId"`
	EventTitle    string        `json:"eventTitle"`
	Member        RosterEntry   `json:"member"`
	Roster        []RosterEntry `json:"roster"`
	CheckedIn     int           `json:"checkedIn"`
	TotalMembers  int           `json:"totalMembers"`
	History       []Attendance  `json:"history,omitempty"`
}
