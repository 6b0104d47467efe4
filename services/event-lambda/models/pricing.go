package models

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
)

// BookingPercentage is reserved tickets over total capacity, in percent.
func (e *Event) BookingPercentage() float64 {
	if e.TotalCapacity <= 0 {
		return 0
	}
	return float64(e.TotalBookings) / float64(e.TotalCapacity) * 100
}

// IncreasedPrice is the one-shot raised price for a base price.
func IncreasedPrice(base int64, increasePercentage float64) int64 {
	return int64(math.Round(float64(base) * (1 + increasePercentage/100)))
}

// ApplyDynamicPricing raises every tier that has not been raised yet once
// the booking percentage reaches the threshold. It reports whether any
// tier changed; a raised tier is never touched again.
func (e *Event) ApplyDynamicPricing() bool {
	if !e.DynamicPricing.Enabled {
		return false
	}
	if e.BookingPercentage() < e.DynamicPricing.ThresholdPercentage {
		return false
	}
	changed := false
	for i := range e.PricingTiers {
		tier := &e.PricingTiers[i]
		if tier.PriceIncreaseApplied {
			continue
		}
		tier.CurrentPrice = IncreasedPrice(tier.BasePrice, e.DynamicPricing.IncreasePercentage)
		tier.PriceIncreaseApplied = true
		changed = true
	}
	return changed
}

// AvailableCapacity sums the open seats over every available time slot.
func (e *Event) AvailableCapacity() int {
	total := 0
	for _, ds := range e.DateSlots {
		for _, ts := range ds.TimeSlots {
			if ts.IsAvailable {
				total += ts.Remaining()
			}
		}
	}
	return total
}

// UpdateSoldOutStatus marks the event sold out when no seat is left.
// It never clears sold_out.
func (e *Event) UpdateSoldOutStatus() bool {
	if e.Status.IsTerminal() || e.Status == StatusSoldOut {
		return false
	}
	if e.AvailableCapacity() != 0 {
		return false
	}
	e.Status = StatusSoldOut
	return true
}

// FindSlot resolves a date and a time given as "HH:MM" or "HH:MM - HH:MM".
func (e *Event) FindSlot(date, slotTime string) (*DateSlot, *TimeSlot, error) {
	date = strings.TrimSpace(date)
	if len(date) > 10 {
		date = date[:10]
	}
	var ds *DateSlot
	for i := range e.DateSlots {
		if e.DateSlots[i].Date == date {
			ds = &e.DateSlots[i]
			break
		}
	}
	if ds == nil {
		return nil, nil, apperrors.NotFound("date slot").WithDetails(fmt.Sprintf("no date slot on %s", date))
	}

	want := normalizeTime(slotTime)
	for i := range ds.TimeSlots {
		ts := &ds.TimeSlots[i]
		if ts.StartTime == want || normalizeTime(ts.Label()) == want {
			return ds, ts, nil
		}
	}
	return ds, nil, apperrors.NotFound("time slot").WithDetails(fmt.Sprintf("no time slot %s on %s", slotTime, date))
}

func normalizeTime(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	return strings.Replace(s, "-", " - ", 1)
}

// FindTier returns the active tier for category.
func (e *Event) FindTier(category PricingCategory) (*PricingTier, error) {
	for i := range e.PricingTiers {
		tier := &e.PricingTiers[i]
		if tier.Category != category {
			continue
		}
		if !tier.IsActive {
			return nil, apperrors.NotFound("pricing tier").WithDetails(fmt.Sprintf("pricing tier %s is not on sale", category))
		}
		return tier, nil
	}
	return nil, apperrors.NotFound("pricing tier").WithDetails(fmt.Sprintf("no pricing tier %s", category))
}

// CheckCapacity verifies that tickets fit the slot and the tier.
func CheckCapacity(ts *TimeSlot, tier *PricingTier, tickets int) error {
	if !ts.IsAvailable {
		return apperrors.Conflict("this time slot is not available for booking")
	}
	if remaining := ts.Remaining(); tickets > remaining {
		return apperrors.CapacityExceeded(fmt.Sprintf("only %d tickets available for this time slot", remaining), remaining)
	}
	if remaining := tier.Remaining(); tickets > remaining {
		return apperrors.CapacityExceeded(fmt.Sprintf("only %d %s tickets available", remaining, tier.Category), remaining)
	}
	return nil
}

// Reserve holds tickets on the slot and tier and counts them as booked.
func (e *Event) Reserve(date, slotTime string, category PricingCategory, tickets int) error {
	if tickets <= 0 {
		return apperrors.InvalidInput("members", "at least one member is required")
	}
	_, ts, err := e.FindSlot(date, slotTime)
	if err != nil {
		return err
	}
	tier, err := e.FindTier(category)
	if err != nil {
		return err
	}
	if err := CheckCapacity(ts, tier, tickets); err != nil {
		return err
	}
	ts.CurrentBookings += tickets
	tier.SoldTickets += tickets
	e.TotalBookings += tickets
	return nil
}

// Release returns previously reserved tickets. Status and prices are left
// as they are.
func (e *Event) Release(date, slotTime string, category PricingCategory, tickets int) error {
	_, ts, err := e.FindSlot(date, slotTime)
	if err != nil {
		return err
	}
	var tier *PricingTier
	for i := range e.PricingTiers {
		if e.PricingTiers[i].Category == category {
			tier = &e.PricingTiers[i]
		}
	}
	if tier == nil {
		return apperrors.NotFound("pricing tier")
	}
	ts.CurrentBookings = clampSub(ts.CurrentBookings, tickets)
	tier.SoldTickets = clampSub(tier.SoldTickets, tickets)
	e.TotalBookings = clampSub(e.TotalBookings, tickets)
	return nil
}

// RecordPayment counts a confirmed booking towards the paid aggregates.
func (e *Event) RecordPayment(tickets int, amount int64) {
	e.PaidBookings++
	e.PaidTickets += tickets
	e.Revenue += amount
}

// ReversePayment undoes RecordPayment after a refund.
func (e *Event) ReversePayment(tickets int, amount int64) {
	e.PaidBookings = clampSub(e.PaidBookings, 1)
	e.PaidTickets = clampSub(e.PaidTickets, tickets)
	e.Revenue -= amount
	if e.Revenue < 0 {
		e.Revenue = 0
	}
}

func clampSub(v, n int) int {
	if v-n < 0 {
		return 0
	}
	return v - n
}
