package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitzfusion/fusionx/common/db/dbtest"
	"github.com/glitzfusion/fusionx/common/email"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/services/booking-lambda/models"
	eventmodels "github.com/glitzfusion/fusionx/services/event-lambda/models"
	eventusecase "github.com/glitzfusion/fusionx/services/event-lambda/usecase"
)

type fixture struct {
	db     *sql.DB
	events *eventusecase.EventUseCase
	uc     *BookingUseCase
	mail   *email.Recorder
	jobs   *email.Dispatcher
	date   string
}

func newFixture(t *testing.T) *fixture {
	sqlDB := dbtest.Open(t)
	f := &fixture{
		db:     sqlDB,
		events: eventusecase.NewEventUseCase(sqlDB, logger.Nop()),
		mail:   &email.Recorder{},
		jobs:   email.NewDispatcher(time.Second, logger.Nop()),
		date:   time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	}
	f.uc = NewBookingUseCase(sqlDB, f.mail, f.jobs, logger.Nop())
	// Background jobs must finish before the database is closed.
	t.Cleanup(f.jobs.Wait)
	return f
}

func (f *fixture) event(t *testing.T, capacity int, dynamic bool) *eventmodels.Event {
	e, err := f.events.CreateEvent(context.Background(), &eventmodels.CreateEventRequest{
		Title:   "FusionX Showcase",
		Publish: true,
		DateSlots: []eventmodels.DateSlotInput{{
			Date:      f.date,
			TimeSlots: []eventmodels.TimeSlotInput{{StartTime: "18:00", EndTime: "21:00", MaxCapacity: capacity}},
		}},
		PricingTiers: []eventmodels.PricingTierInput{
			{Category: eventmodels.CategoryGeneral, BasePrice: 1000, MaxTickets: capacity},
			{Category: eventmodels.CategoryVIP, BasePrice: 2500, MaxTickets: 2},
		},
		DynamicPricing: eventmodels.DynamicPricingConfig{Enabled: dynamic, ThresholdPercentage: 50, IncreasePercentage: 20},
	})
	require.NoError(t, err)
	return e
}

func members(n int) []models.MemberInput {
	out := make([]models.MemberInput, n)
	for i := range out {
		out[i] = models.MemberInput{
			Name:  fmt.Sprintf("Dancer %d", i+1),
			Email: fmt.Sprintf("Dancer%d@Example.com", i+1),
			Phone: "+91 98765 4321" + fmt.Sprint(i%10),
		}
	}
	return out
}

func (f *fixture) request(eventID string, n int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		EventID:         eventID,
		SelectedDate:    f.date,
		SelectedTime:    "18:00",
		PricingCategory: eventmodels.CategoryGeneral,
		Members:         members(n),
	}
}

func TestDynamicPricingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.event(t, 10, true)

	first, err := f.uc.CreateBooking(ctx, f.request(event.ID, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(4000), first.TotalAmount)
	assert.Equal(t, int64(1000), first.NextUnitPrice)

	// 5/10 is exactly the threshold.
	pushing, err := f.uc.CreateBooking(ctx, f.request(event.ID, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), pushing.TotalAmount)
	assert.Equal(t, int64(1200), pushing.NextUnitPrice)

	stored, err := f.events.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TotalBookings)
	assert.True(t, stored.PricingTiers[0].PriceIncreaseApplied)
	assert.Equal(t, int64(1200), stored.PricingTiers[0].CurrentPrice)

	next, err := f.uc.CreateBooking(ctx, f.request(event.ID, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1200), next.TotalAmount)
	assert.Equal(t, int64(1200), next.Booking.UnitPrice)
}

func TestOverCapacityLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.event(t, 5, false)

	_, err := f.uc.CreateBooking(ctx, f.request(event.ID, 3))
	require.NoError(t, err)

	_, err = f.uc.CreateBooking(ctx, f.request(event.ID, 3))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCapacityExceeded))
	assert.Contains(t, err.Error(), "only 2 tickets available for this time slot")

	stored, err := f.events.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.DateSlots[0].TimeSlots[0].CurrentBookings)
	assert.Equal(t, 3, stored.TotalBookings)

	list, err := f.uc.ListBookings(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTierLimit(t *testing.T) {
	f := newFixture(t)
	event := f.event(t, 10, false)
	req := f.request(event.ID, 3)
	req.PricingCategory = eventmodels.CategoryVIP

	_, err := f.uc.CreateBooking(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCapacityExceeded))
	assert.Contains(t, err.Error(), "only 2 vip tickets available")
}

func TestValidationOrder(t *testing.T) {
	f := newFixture(t)
	event := f.event(t, 10, false)

	tests := []struct {
		name   string
		mutate func(r *models.CreateBookingRequest)
		kind   apperrors.Kind
		field  string
	}{
		{"unknown event", func(r *models.CreateBookingRequest) { r.EventID = "nope" }, apperrors.KindNotFound, ""},
		{"unknown date", func(r *models.CreateBookingRequest) { r.SelectedDate = "2031-01-01" }, apperrors.KindNotFound, ""},
		{"unknown time", func(r *models.CreateBookingRequest) { r.SelectedTime = "07:00" }, apperrors.KindNotFound, ""},
		{"unknown tier", func(r *models.CreateBookingRequest) { r.PricingCategory = eventmodels.CategoryStudent }, apperrors.KindNotFound, ""},
		{"tier before members", func(r *models.CreateBookingRequest) {
			r.PricingCategory = eventmodels.CategoryStudent
			r.Members = nil
		}, apperrors.KindNotFound, ""},
		{"no members", func(r *models.CreateBookingRequest) { r.Members = nil }, apperrors.KindValidation, "members"},
		{"bad email", func(r *models.CreateBookingRequest) { r.Members[1].Email = "not-an-email" }, apperrors.KindValidation, "members[1].email"},
		{"bad phone", func(r *models.CreateBookingRequest) { r.Members[0].Phone = "12" }, apperrors.KindValidation, "members[0].phone"},
		{"missing name", func(r *models.CreateBookingRequest) { r.Members[2].Name = "  " }, apperrors.KindValidation, "members[2].name"},
		{"members before capacity", func(r *models.CreateBookingRequest) {
			r.Members = append(members(11), models.MemberInput{Name: "Xavier"})
		}, apperrors.KindValidation, "members[11].email"},
		{"missing event id", func(r *models.CreateBookingRequest) { r.EventID = "" }, apperrors.KindValidation, "eventId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(event.ID, 3)
			tt.mutate(req)
			_, err := f.uc.CreateBooking(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			if tt.field != "" {
				appErr, _ := apperrors.AsAppError(err)
				assert.Equal(t, tt.field, appErr.Fields["field"])
			}
		})
	}

	stored, err := f.events.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.TotalBookings)
}

func TestBookingRequiresPublishedEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.event(t, 10, false)
	_, err := f.events.UpdateEventStatus(ctx, event.ID, eventmodels.StatusCancelled)
	require.NoError(t, err)

	_, err = f.uc.CreateBooking(ctx, f.request(event.ID, 1))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEventNotOpen))
}

func TestRoundTripByCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.event(t, 10, false)

	created, err := f.uc.CreateBooking(ctx, f.request(event.ID, 3))
	require.NoError(t, err)
	b := created.Booking
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.Equal(t, b.SelectedTime, "18:00 - 21:00")

	seen := map[string]bool{b.BookingCode: true}
	for _, m := range b.Members {
		assert.False(t, seen[m.MemberCode], "codes are unique")
		seen[m.MemberCode] = true
	}
	assert.Equal(t, "dancer1@example.com", b.PrimaryContact().Email)
	assert.Equal(t, "+919876543210", b.PrimaryContact().Phone)

	fetched, err := f.uc.GetBookingByCode(ctx, " "+b.BookingCode+" ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, fetched.ID)
	assert.Equal(t, b.Members, fetched.Members)
	assert.Equal(t, b.TotalAmount, fetched.TotalAmount)
	assert.Equal(t, b.SelectedDate, fetched.SelectedDate)
	assert.Equal(t, b.SelectedTime, fetched.SelectedTime)
	assert.Equal(t, b.PricingCategory, fetched.PricingCategory)

	byID, err := f.uc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookingCode, byID.BookingCode)

	_, err = f.uc.GetBookingByCode(ctx, "ZZZZZZ")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestBookingReceivedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.event(t, 10, false)

	created, err := f.uc.CreateBooking(ctx, f.request(event.ID, 2))
	require.NoError(t, err)
	f.jobs.Wait()

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "dancer1@example.com", sent[0].To)
	assert.Equal(t, email.TemplateBookingReceived, sent[0].Template)
	data := sent[0].Data.(email.BookingReceivedData)
	assert.Equal(t, created.BookingCode, data.BookingCode)
	assert.Len(t, data.Members, 2)

	stored, err := f.uc.GetBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailSent)
}

func TestEmailFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = fmt.Errorf("smtp down")
	event := f.event(t, 10, false)

	created, err := f.uc.CreateBooking(context.Background(), f.request(event.ID, 1))
	require.NoError(t, err)
	f.jobs.Wait()

	stored, err := f.uc.GetBooking(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailSent)
}

func TestConcurrentBookingsNeverOversell(t *testing.T) {
	f := newFixture(t)
	event := f.event(t, 5, false)

	const buyers = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		err []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, e := f.uc.CreateBooking(context.Background(), f.request(event.ID, 1))
			mu.Lock()
			defer mu.Unlock()
			if e == nil {
				ok++
				return
			}
			err = append(err, e)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	for _, e := range err {
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(e))
	}
	stored, e := f.events.GetEvent(context.Background(), event.ID)
	require.NoError(t, e)
	assert.Equal(t, 5, stored.DateSlots[0].TimeSlots[0].CurrentBookings)
	assert.Equal(t, eventmodels.StatusSoldOut, stored.Status)
}
