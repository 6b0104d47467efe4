package models

import (
	"fmt"
	"time"

	"github.com/glitzfusion/fusionx/common/validator"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusSoldOut   EventStatus = "sold_out"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// IsTerminal reports whether nothing can change the status any more.
func (s EventStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusSoldOut, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// PricingCategory identifies a pricing tier within an event.
type PricingCategory string

const (
	CategoryGeneral PricingCategory = "general"
	CategoryStudent PricingCategory = "student"
	CategoryPremium PricingCategory = "premium"
	CategoryVIP     PricingCategory = "vip"
)

func (c PricingCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryStudent, CategoryPremium, CategoryVIP:
		return true
	}
	return false
}

// ============================================================
// Event aggregate
// ============================================================

type TimeSlot struct {
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime         string `json:"endTime" validate:"required,datetime=15:04"`
	MaxCapacity     int    `json:"maxCapacity" validate:"gte=0"`
	CurrentBookings int    `json:"currentBookings" validate:"gte=0"`
	IsAvailable     bool   `json:"isAvailable"`
}

// Label is the "HH:MM - HH:MM" form shown to buyers.
func (t TimeSlot) Label() string {
	return t.StartTime + " - " + t.EndTime
}

// Remaining is the number of seats still open in the slot.
func (t TimeSlot) Remaining() int {
	if r := t.MaxCapacity - t.CurrentBookings; r > 0 {
		return r
	}
	return 0
}

type DateSlot struct {
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlots []TimeSlot `json:"timeSlots" validate:"required,min=1,dive"`
}

type PricingTier struct {
	Category             PricingCategory `json:"category" validate:"required"`
	Name                 string          `json:"name"`
	BasePrice            int64           `json:"basePrice" validate:"gte=0"`
	CurrentPrice         int64           `json:"currentPrice" validate:"gte=0"`
	MaxTickets           int             `json:"maxTickets" validate:"gte=0"`
	SoldTickets          int             `json:"soldTickets" validate:"gte=0"`
	PriceIncreaseApplied bool            `json:"priceIncreaseApplied"`
	IsActive             bool            `json:"isActive"`
}

// Remaining is the number of tickets still sellable in the tier.
func (p PricingTier) Remaining() int {
	if r := p.MaxTickets - p.SoldTickets; r > 0 {
		return r
	}
	return 0
}

type DynamicPricingConfig struct {
	Enabled             bool    `json:"enabled"`
	ThresholdPercentage float64 `json:"thresholdPercentage" validate:"gte=0,lte=100"`
	IncreasePercentage  float64 `json:"increasePercentage" validate:"gte=0,lte=1000"`
}

// Event is the catalog aggregate. Prices and revenue are whole units of Currency.
type Event struct {
	ID             string               `json:"id"`
	Slug           string               `json:"slug"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Venue          string               `json:"venue,omitempty"`
	Currency       string               `json:"currency"`
	Status         EventStatus          `json:"status"`
	DateSlots      []DateSlot           `json:"dateSlots"`
	PricingTiers   []PricingTier        `json:"pricingTiers"`
	DynamicPricing DynamicPricingConfig `json:"dynamicPricing"`

	TotalCapacity int   `json:"totalCapacity"`
	TotalBookings int   `json:"totalBookings"`
	PaidBookings  int   `json:"paidBookings"`
	PaidTickets   int   `json:"paidTickets"`
	Revenue       int64 `json:"revenue"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is the part of the event stored as one JSON column.
type Document struct {
	Description    string               `json:"description,omitempty"`
	Venue          string               `json:"venue,omitempty"`
	Currency       string               `json:"currency"`
	DateSlots      []DateSlot           `json:"dateSlots" validate:"required,min=1,dive"`
	PricingTiers   []PricingTier        `json:"pricingTiers" validate:"required,min=1,dive"`
	DynamicPricing DynamicPricingConfig `json:"dynamicPricing"`
}

func (e *Event) Document() Document {
	return Document{
		Description:    e.Description,
		Venue:          e.Venue,
		Currency:       e.Currency,
		DateSlots:      e.DateSlots,
		PricingTiers:   e.PricingTiers,
		DynamicPricing: e.DynamicPricing,
	}
}

func (e *Event) SetDocument(d Document) {
	e.Description = d.Description
	e.Venue = d.Venue
	e.Currency = d.Currency
	e.DateSlots = d.DateSlots
	e.PricingTiers = d.PricingTiers
	e.DynamicPricing = d.DynamicPricing
}

// Validate checks the structural invariants of a loaded or new event.
func (e *Event) Validate() error {
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	doc := e.Document()
	if err := validator.Get().Struct(doc); err != nil {
		return err
	}

	seenDates := map[string]bool{}
	capacity := 0
	for _, ds := range e.DateSlots {
		if seenDates[ds.Date] {
			return fmt.Errorf("duplicate date slot %s", ds.Date)
		}
		seenDates[ds.Date] = true
		seenTimes := map[string]bool{}
		for _, ts := range ds.TimeSlots {
			if seenTimes[ts.StartTime] {
				return fmt.Errorf("duplicate time slot %s on %s", ts.StartTime, ds.Date)
			}
			seenTimes[ts.StartTime] = true
			if ts.EndTime <= ts.StartTime {
				return fmt.Errorf("time slot %s on %s ends before it starts", ts.StartTime, ds.Date)
			}
			if ts.CurrentBookings > ts.MaxCapacity {
				return fmt.Errorf("time slot %s on %s is over capacity", ts.StartTime, ds.Date)
			}
			capacity += ts.MaxCapacity
		}
	}
	if capacity != e.TotalCapacity {
		return fmt.Errorf("total capacity %d does not match slots (%d)", e.TotalCapacity, capacity)
	}

	seenTiers := map[PricingCategory]bool{}
	for _, tier := range e.PricingTiers {
		if !tier.Category.Valid() {
			return fmt.Errorf("unknown pricing category %q", tier.Category)
		}
		if seenTiers[tier.Category] {
			return fmt.Errorf("duplicate pricing tier %s", tier.Category)
		}
		seenTiers[tier.Category] = true
		if tier.SoldTickets > tier.MaxTickets {
			return fmt.Errorf("pricing tier %s sold beyond its limit", tier.Category)
		}
		if !tier.PriceIncreaseApplied && tier.CurrentPrice != tier.BasePrice {
			return fmt.Errorf("pricing tier %s current price differs from base before any increase", tier.Category)
		}
		if tier.PriceIncreaseApplied {
			if want := IncreasedPrice(tier.BasePrice, e.DynamicPricing.IncreasePercentage); tier.CurrentPrice != want {
				return fmt.Errorf("pricing tier %s raised price is %d, want %d", tier.Category, tier.CurrentPrice, want)
			}
		}
	}

	if e.TotalBookings < 0 || e.PaidTickets < 0 || e.PaidBookings < 0 || e.Revenue < 0 {
		return fmt.Errorf("negative aggregate counter")
	}
	return nil
}

// ============================================================
// Request / response bodies
// ============================================================

type TimeSlotInput struct {
	StartTime   string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"required,datetime=15:04"`
	MaxCapacity int    `json:"maxCapacity" validate:"gt=0"`
}

type DateSlotInput struct {
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlots []TimeSlotInput `json:"timeSlots" validate:"required,min=1,dive"`
}

type PricingTierInput struct {
	Category   PricingCategory `json:"category" validate:"required,oneof=general student premium vip"`
	Name       string          `json:"name" validate:"max=80"`
	BasePrice  int64           `json:"basePrice" validate:"gt=0"`
	MaxTickets int             `json:"maxTickets" validate:"gt=0"`
}

type CreateEventRequest struct {
	Title          string               `json:"title" validate:"required,min=3,max=200"`
	Description    string               `json:"description" validate:"max=5000"`
	Venue          string               `json:"venue" validate:"max=200"`
	Currency       string               `json:"currency" validate:"omitempty,len=3,uppercase"`
	Publish        bool                 `json:"publish"`
	DateSlots      []DateSlotInput      `json:"dateSlots" validate:"required,min=1,dive"`
	PricingTiers   []PricingTierInput   `json:"pricingTiers" validate:"required,min=1,dive"`
	DynamicPricing DynamicPricingConfig `json:"dynamicPricing"`
}

type UpdateStatusRequest struct {
	Status EventStatus `json:"status" validate:"required"`
}

type AdjustCapacityRequest struct {
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
	MaxCapacity int    `json:"maxCapacity" validate:"gte=0"`
}

// Quote is the price offered for a prospective purchase.
type Quote struct {
	EventID           string          `json:"eventId"`
	Category          PricingCategory `json:"category"`
	Tickets           int             `json:"tickets"`
	UnitPrice         int64           `json:"unitPrice"`
	BasePrice         int64           `json:"basePrice"`
	PriceIncreased    bool            `json:"priceIncreased"`
	Total             int64           `json:"total"`
	Currency          string          `json:"currency"`
	TierRemaining     int             `json:"tierRemaining"`
	AvailableCapacity int             `json:"availableCapacity"`
	BookingPercentage float64         `json:"bookingPercentage"`
}

// EventListItem is the public summary used in listings.
type EventListItem struct {
	ID                string      `json:"id"`
	Slug              string      `json:"slug"`
	Title             string      `json:"title"`
	Venue             string      `json:"venue,omitempty"`
	Status            EventStatus `json:"status"`
	FirstDate         string      `json:"firstDate,omitempty"`
	FromPrice         int64       `json:"fromPrice"`
	Currency          string      `json:"currency"`
	AvailableCapacity int         `json:"availableCapacity"`
}

func (e *Event) ListItem() EventListItem {
	item := EventListItem{
		ID:                e.ID,
		Slug:              e.Slug,
		Title:             e.Title,
		Venue:             e.Venue,
		Status:            e.Status,
		Currency:          e.Currency,
		AvailableCapacity: e.AvailableCapacity(),
	}
	if len(e.DateSlots) > 0 {
		item.FirstDate = e.DateSlots[0].Date
	}
	for _, tier := range e.PricingTiers {
		if !tier.IsActive {
			continue
		}
		if item.FromPrice == 0 || tier.CurrentPrice < item.FromPrice {
			item.FromPrice = tier.CurrentPrice
		}
	}
	return item
}
