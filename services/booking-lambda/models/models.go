package models

import (
	"fmt"
	"strings"
	"time"

	eventmodels "github.com/glitzfusion/fusionx/services/event-lambda/models"
)

// BookingStatus is the reservation state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus mirrors the latest payment outcome on the booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Member is one attendee. Position 0 is the primary contact.
type Member struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	MemberCode string `json:"memberCode"`
}

// Booking is a reservation of TicketCount seats in one slot and tier.
// Amounts are whole units of Currency.
type Booking struct {
	ID              string                      `json:"id"`
	BookingCode     string                      `json:"bookingCode"`
	EventID         string                      `json:"eventId"`
	SelectedDate    string                      `json:"selectedDate"`
	SelectedTime    string                      `json:"selectedTime"`
	PricingCategory eventmodels.PricingCategory `json:"pricingCategory"`
	TicketCount     int                         `json:"ticketCount"`
	UnitPrice       int64                       `json:"unitPrice"`
	TotalAmount     int64                       `json:"totalAmount"`
	Currency        string                      `json:"currency"`
	Status          BookingStatus               `json:"status"`
	PaymentStatus   PaymentStatus               `json:"paymentStatus"`
	Members         []Member                    `json:"members"`
	EmailSent       bool                        `json:"emailSent"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// PrimaryContact is the first member.
func (b *Booking) PrimaryContact() Member {
	if len(b.Members) == 0 {
		return Member{}
	}
	return b.Members[0]
}

// FindMember returns the member holding code, or nil.
func (b *Booking) FindMember(code string) *Member {
	for i := range b.Members {
		if b.Members[i].MemberCode == code {
			return &b.Members[i]
		}
	}
	return nil
}

// IsPaid reports whether the booking is confirmed and settled.
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaid
}

// FormatAmount renders a whole-unit amount for emails and tickets.
func FormatAmount(amount int64, currency string) string {
	if strings.EqualFold(currency, "INR") {
		return fmt.Sprintf("₹%d", amount)
	}
	return fmt.Sprintf("%d %s", amount, currency)
}

// ============================================================
// Request bodies
// ============================================================

type MemberInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,phone"`
}

type CreateBookingRequest struct {
	EventID         string                      `json:"eventId"`
	SelectedDate    string                      `json:"selectedDate"`
	SelectedTime    string                      `json:"selectedTime"`
	PricingCategory eventmodels.PricingCategory `json:"pricingCategory"`
	Members         []MemberInput               `json:"members"`
}

// BookingConfirmation is returned once a booking is held.
type BookingConfirmation struct {
	Booking     *Booking `json:"booking"`
	BookingCode string   `json:"bookingCode"`
	TotalAmount int64    `json:"totalAmount"`
	Currency    string   `json:"currency"`
	// NextUnitPrice is what the tier costs for the next buyer.
	NextUnitPrice int64 `json:"nextUnitPrice"`
}
