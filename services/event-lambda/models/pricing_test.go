package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
)

// showcase is one 10-seat slot with 4 seats taken, 50% threshold, +20%.
func showcase() *Event {
	return &Event{
		ID:       "evt-showcase",
		Title:    "Summer Showcase",
		Currency: "INR",
		Status:   StatusPublished,
		DateSlots: []DateSlot{{
			Date: "2026-11-21",
			TimeSlots: []TimeSlot{
				{StartTime: "18:00", EndTime: "21:00", MaxCapacity: 10, CurrentBookings: 4, IsAvailable: true},
			},
		}},
		PricingTiers: []PricingTier{
			{Category: CategoryGeneral, BasePrice: 1000, CurrentPrice: 1000, MaxTickets: 10, SoldTickets: 4, IsActive: true},
		},
		DynamicPricing: DynamicPricingConfig{Enabled: true, ThresholdPercentage: 50, IncreasePercentage: 20},
		TotalCapacity:  10,
		TotalBookings:  4,
	}
}

func TestThresholdScenario(t *testing.T) {
	e := showcase()
	require.NoError(t, e.Validate())

	assert.False(t, e.ApplyDynamicPricing(), "40% is below threshold")
	assert.Equal(t, int64(1000), e.PricingTiers[0].CurrentPrice)

	require.NoError(t, e.Reserve("2026-11-21", "18:00", CategoryGeneral, 1))
	assert.Equal(t, 5, e.TotalBookings)
	assert.Equal(t, 50.0, e.BookingPercentage())

	assert.True(t, e.ApplyDynamicPricing())
	assert.Equal(t, int64(1200), e.PricingTiers[0].CurrentPrice)
	assert.True(t, e.PricingTiers[0].PriceIncreaseApplied)

	tier, err := e.FindTier(CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), tier.CurrentPrice, "next buyer pays the raised price")

	assert.False(t, e.ApplyDynamicPricing(), "second call is a no-op")
	assert.Equal(t, int64(1200), e.PricingTiers[0].CurrentPrice)
	require.NoError(t, e.Validate())
}

func TestApplyDynamicPricingDisabled(t *testing.T) {
	e := showcase()
	e.DynamicPricing.Enabled = false
	e.TotalBookings = 10
	assert.False(t, e.ApplyDynamicPricing())
	assert.Equal(t, int64(1000), e.PricingTiers[0].CurrentPrice)
}

func TestApplyDynamicPricingZeroCapacity(t *testing.T) {
	e := &Event{DynamicPricing: DynamicPricingConfig{Enabled: true, ThresholdPercentage: 1, IncreasePercentage: 10},
		PricingTiers: []PricingTier{{Category: CategoryVIP, BasePrice: 500, CurrentPrice: 500}}}
	assert.Zero(t, e.BookingPercentage())
	assert.False(t, e.ApplyDynamicPricing())
}

func TestIncreasedPriceRounds(t *testing.T) {
	tests := []struct {
		base     int64
		increase float64
		want     int64
	}{
		{1000, 20, 1200},
		{999, 15, 1149}, // 1148.85
		{333, 50, 500},  // 499.5 rounds half away from zero
		{100, 0, 100},
	}
	for _, tt := range tests {
		if got := IncreasedPrice(tt.base, tt.increase); got != tt.want {
			t.Errorf("IncreasedPrice(%d, %v) = %d, want %d", tt.base, tt.increase, got, tt.want)
		}
	}
}

func TestPriceIsOneShotProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.Int64Range(1, 1_000_000).Draw(t, "base")
		increase := rapid.Float64Range(0, 200).Draw(t, "increase")
		threshold := rapid.Float64Range(0, 100).Draw(t, "threshold")
		capacity := rapid.IntRange(1, 500).Draw(t, "capacity")

		e := &Event{
			TotalCapacity:  capacity,
			DynamicPricing: DynamicPricingConfig{Enabled: true, ThresholdPercentage: threshold, IncreasePercentage: increase},
			PricingTiers:   []PricingTier{{Category: CategoryGeneral, BasePrice: base, CurrentPrice: base}},
		}
		raised := IncreasedPrice(base, increase)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		wasRaised := false
		for i := 0; i < steps; i++ {
			e.TotalBookings = rapid.IntRange(0, capacity).Draw(t, "bookings")
			e.ApplyDynamicPricing()

			price := e.PricingTiers[0].CurrentPrice
			if price != base && price != raised {
				t.Fatalf("price %d is neither base %d nor raised %d", price, base, raised)
			}
			if wasRaised && !e.PricingTiers[0].PriceIncreaseApplied {
				t.Fatalf("increase flag reverted")
			}
			if e.PricingTiers[0].PriceIncreaseApplied {
				if price != raised {
					t.Fatalf("flag set but price %d != %d", price, raised)
				}
				wasRaised = true
			}
		}
	})
}

func TestReserveNeverExceedsCapacityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := showcase()
		e.DynamicPricing.Enabled = false
		for i := 0; i < 20; i++ {
			n := rapid.IntRange(1, 5).Draw(t, "tickets")
			before := e.DateSlots[0].TimeSlots[0]
			err := e.Reserve("2026-11-21", "18:00", CategoryGeneral, n)
			slot := e.DateSlots[0].TimeSlots[0]
			if slot.CurrentBookings > slot.MaxCapacity {
				t.Fatalf("slot over capacity: %d/%d", slot.CurrentBookings, slot.MaxCapacity)
			}
			if err != nil && slot != before {
				t.Fatalf("rejected reservation mutated the slot")
			}
		}
	})
}

func TestReserveRejectsOverCapacity(t *testing.T) {
	e := showcase()
	e.DateSlots[0].TimeSlots[0].CurrentBookings = 8

	err := e.Reserve("2026-11-21", "18:00", CategoryGeneral, 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "only 2 tickets available for this time slot")
	assert.Equal(t, 8, e.DateSlots[0].TimeSlots[0].CurrentBookings)
	assert.Equal(t, 4, e.TotalBookings)
}

func TestReserveTierLimit(t *testing.T) {
	e := showcase()
	e.PricingTiers[0].MaxTickets = 5

	err := e.Reserve("2026-11-21", "18:00", CategoryGeneral, 2)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCapacityExceeded))
	assert.Contains(t, err.Error(), "only 1 general tickets available")
}

func TestFindSlot(t *testing.T) {
	e := showcase()

	tests := []struct {
		name string
		date string
		time string
		kind apperrors.Kind
	}{
		{"start time", "2026-11-21", "18:00", ""},
		{"label", "2026-11-21", "18:00 - 21:00", ""},
		{"compact label", "2026-11-21", "18:00-21:00", ""},
		{"rfc3339 date", "2026-11-21T00:00:00.000Z", "18:00", ""},
		{"unknown date", "2026-11-22", "18:00", apperrors.KindNotFound},
		{"unknown time", "2026-11-21", "19:00", apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts, err := e.FindSlot(tt.date, tt.time)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, "18:00", ts.StartTime)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestFindTierInactive(t *testing.T) {
	e := showcase()
	e.PricingTiers[0].IsActive = false
	_, err := e.FindTier(CategoryGeneral)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = e.FindTier(CategoryVIP)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateSoldOutStatus(t *testing.T) {
	e := showcase()
	assert.False(t, e.UpdateSoldOutStatus())

	require.NoError(t, e.Reserve("2026-11-21", "18:00", CategoryGeneral, 6))
	assert.True(t, e.UpdateSoldOutStatus())
	assert.Equal(t, StatusSoldOut, e.Status)

	require.NoError(t, e.Release("2026-11-21", "18:00", CategoryGeneral, 3))
	assert.False(t, e.UpdateSoldOutStatus())
	assert.Equal(t, StatusSoldOut, e.Status, "sold_out is never cleared")

	c := showcase()
	c.Status = StatusCancelled
	c.DateSlots[0].TimeSlots[0].CurrentBookings = 10
	assert.False(t, c.UpdateSoldOutStatus())
	assert.Equal(t, StatusCancelled, c.Status)
}

func TestUnavailableSlotsDoNotCount(t *testing.T) {
	e := showcase()
	e.DateSlots[0].TimeSlots = append(e.DateSlots[0].TimeSlots,
		TimeSlot{StartTime: "21:30", EndTime: "23:00", MaxCapacity: 5, IsAvailable: false})
	e.TotalCapacity = 15
	assert.Equal(t, 6, e.AvailableCapacity())

	err := e.Reserve("2026-11-21", "21:30", CategoryGeneral, 1)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestPaymentCounters(t *testing.T) {
	e := showcase()
	e.RecordPayment(2, 2400)
	e.RecordPayment(1, 1200)
	assert.Equal(t, 2, e.PaidBookings)
	assert.Equal(t, 3, e.PaidTickets)
	assert.Equal(t, int64(3600), e.Revenue)

	e.ReversePayment(2, 2400)
	assert.Equal(t, 1, e.PaidBookings)
	assert.Equal(t, 1, e.PaidTickets)
	assert.Equal(t, int64(1200), e.Revenue)
}

func TestValidateAcceptsRaisedTier(t *testing.T) {
	e := showcase()
	e.PricingTiers[0].PriceIncreaseApplied = true
	e.PricingTiers[0].CurrentPrice = 1200
	assert.NoError(t, e.Validate())
}

func TestValidateRejectsCorruptDocuments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Event)
	}{
		{"unknown status", func(e *Event) { e.Status = "open" }},
		{"slot over capacity", func(e *Event) { e.DateSlots[0].TimeSlots[0].CurrentBookings = 11 }},
		{"tier oversold", func(e *Event) { e.PricingTiers[0].SoldTickets = 11 }},
		{"capacity mismatch", func(e *Event) { e.TotalCapacity = 12 }},
		{"price drift", func(e *Event) { e.PricingTiers[0].CurrentPrice = 900 }},
		{"unknown category", func(e *Event) { e.PricingTiers[0].Category = "balcony" }},
		{"bad date", func(e *Event) { e.DateSlots[0].Date = "21/11/2026" }},
		{"bad time", func(e *Event) { e.DateSlots[0].TimeSlots[0].StartTime = "6pm" }},
		{"negative revenue", func(e *Event) { e.Revenue = -1 }},
		{"negative slot bookings", func(e *Event) { e.DateSlots[0].TimeSlots[0].CurrentBookings = -5 }},
		{"negative tier sales", func(e *Event) { e.PricingTiers[0].SoldTickets = -3 }},
		{"negative base price", func(e *Event) {
			e.PricingTiers[0].BasePrice = -1000
			e.PricingTiers[0].CurrentPrice = -1000
		}},
		{"bad end time", func(e *Event) { e.DateSlots[0].TimeSlots[0].EndTime = "99:99" }},
		{"no date slots", func(e *Event) { e.DateSlots = nil; e.TotalCapacity = 0 }},
		{"no tiers", func(e *Event) { e.PricingTiers = nil }},
		{"raised price drift", func(e *Event) {
			e.PricingTiers[0].PriceIncreaseApplied = true
			e.PricingTiers[0].CurrentPrice = 1500
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := showcase()
			tt.mutate(e)
			assert.Error(t, e.Validate())
		})
	}
}
