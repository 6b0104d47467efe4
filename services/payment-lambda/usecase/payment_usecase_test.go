package usecase

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitzfusion/fusionx/common/db/dbtest"
	"github.com/glitzfusion/fusionx/common/email"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/razorpay"
	bookingmodels "github.com/glitzfusion/fusionx/services/booking-lambda/models"
	bookingusecase "github.com/glitzfusion/fusionx/services/booking-lambda/usecase"
	eventmodels "github.com/glitzfusion/fusionx/services/event-lambda/models"
	eventrepo "github.com/glitzfusion/fusionx/services/event-lambda/repository"
	eventusecase "github.com/glitzfusion/fusionx/services/event-lambda/usecase"
	"github.com/glitzfusion/fusionx/services/payment-lambda/models"
	"github.com/glitzfusion/fusionx/services/payment-lambda/repository"
)

var meta = models.RequestMeta{IPAddress: "203.0.113.7", UserAgent: "fusionx-test"}

type fixture struct {
	db       *sql.DB
	gateway  *fakeGateway
	client   *razorpay.Client
	mail     *email.Recorder
	jobs     *email.Dispatcher
	bookings *bookingusecase.BookingUseCase
	uc       *PaymentUseCase
	eventID  string
}

func newFixture(t *testing.T) *fixture {
	sqlDB := dbtest.Open(t)
	f := &fixture{
		db:      sqlDB,
		gateway: newFakeGateway(t),
		mail:    &email.Recorder{},
		jobs:    email.NewDispatcher(5*time.Second, logger.Nop()),
	}
	t.Cleanup(f.jobs.Wait)
	f.client = f.gateway.client(150 * time.Millisecond)
	f.bookings = bookingusecase.NewBookingUseCase(sqlDB, f.mail, f.jobs, logger.Nop())
	f.uc = NewPaymentUseCase(sqlDB, f.client, f.mail, nil, f.jobs, logger.Nop())

	event, err := eventusecase.NewEventUseCase(sqlDB, logger.Nop()).CreateEvent(context.Background(), &eventmodels.CreateEventRequest{
		Title:   "FusionX Finale",
		Publish: true,
		DateSlots: []eventmodels.DateSlotInput{{
			Date:      time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
			TimeSlots: []eventmodels.TimeSlotInput{{StartTime: "18:00", EndTime: "21:00", MaxCapacity: 5}},
		}},
		PricingTiers: []eventmodels.PricingTierInput{{Category: eventmodels.CategoryGeneral, BasePrice: 1000, MaxTickets: 5}},
	})
	require.NoError(t, err)
	f.eventID = event.ID
	return f
}

// book holds two tickets, 2000 in total.
func (f *fixture) book(t *testing.T) *bookingmodels.Booking {
	event, err := eventrepo.NewEventRepository(f.db).GetByID(context.Background(), f.eventID)
	require.NoError(t, err)
	confirmation, err := f.bookings.CreateBooking(context.Background(), &bookingmodels.CreateBookingRequest{
		EventID:         f.eventID,
		SelectedDate:    event.DateSlots[0].Date,
		SelectedTime:    "18:00",
		PricingCategory: eventmodels.CategoryGeneral,
		Members: []bookingmodels.MemberInput{
			{Name: "Kavya Rao", Email: "kavya@example.com", Phone: "9876543210"},
			{Name: "Arjun Rao", Email: "arjun@example.com", Phone: "9876543211"},
		},
	})
	require.NoError(t, err)
	return confirmation.Booking
}

func (f *fixture) verifyRequest(orderID, paymentID string) *models.VerifyRequest {
	return &models.VerifyRequest{OrderID: orderID, PaymentID: paymentID, Signature: f.client.Signature(orderID, paymentID)}
}

func (f *fixture) event(t *testing.T) *eventmodels.Event {
	e, err := eventrepo.NewEventRepository(f.db).GetByID(context.Background(), f.eventID)
	require.NoError(t, err)
	return e
}

func (f *fixture) booking(t *testing.T, id string) *bookingmodels.Booking {
	b, err := f.bookings.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) logTypes(t *testing.T, bookingID string) []models.TransactionType {
	logs, err := f.uc.ListTransactions(context.Background(), bookingID)
	require.NoError(t, err)
	out := make([]models.TransactionType, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Type)
	}
	return out
}

func TestCreateOrderReusesPendingPayment(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)

	first, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), first.Amount)
	assert.Equal(t, "INR", first.Currency)
	assert.Equal(t, "rzp_test_key", first.KeyID)
	assert.False(t, first.Reused)

	second, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.OrderID, second.OrderID)

	orders, _ := f.gateway.counts()
	assert.Equal(t, 1, orders)
	assert.Equal(t, []models.TransactionType{models.TxOrderCreated}, f.logTypes(t, b.ID))
}

func TestCreateOrderUnknownBooking(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.CreatePaymentOrder(context.Background(), "missing", meta)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestVerifySuccessConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)

	result, err := f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, b.BookingCode, result.BookingCode)
	assert.Equal(t, "paid", result.PaymentStatus)

	got := f.booking(t, b.ID)
	assert.Equal(t, bookingmodels.BookingConfirmed, got.Status)
	assert.Equal(t, bookingmodels.PaymentPaid, got.PaymentStatus)

	event := f.event(t)
	assert.Equal(t, 1, event.PaidBookings)
	assert.Equal(t, 2, event.PaidTickets)
	assert.Equal(t, int64(2000), event.Revenue)

	assert.Equal(t, []models.TransactionType{models.TxOrderCreated, models.TxAttempted, models.TxSuccess}, f.logTypes(t, b.ID))
	logs, err := f.uc.ListTransactions(context.Background(), b.ID)
	require.NoError(t, err)
	success := logs[2]
	assert.Equal(t, 2000.0, success.Amount)
	assert.Equal(t, "pay_1", success.GatewayPaymentID)
	assert.Equal(t, "203.0.113.7", success.IPAddress)
	assert.Contains(t, string(success.GatewayResponse), `"method":"upi"`)

	f.jobs.Wait()
	var confirmed *email.Message
	for _, m := range f.mail.Sent() {
		if m.Template == email.TemplatePaymentConfirmed {
			m := m
			confirmed = &m
		}
	}
	require.NotNil(t, confirmed)
	assert.Equal(t, "kavya@example.com", confirmed.To)
	require.Len(t, confirmed.Attachments, 2)
	assert.Equal(t, "application/pdf", confirmed.Attachments[0].MimeType)
}

func TestVerifyTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)

	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)
	again, err := f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)
	assert.True(t, again.Success)

	assert.Equal(t, 1, f.event(t).PaidBookings)
	assert.Len(t, f.logTypes(t, b.ID), 3)
}

func TestConcurrentVerifyConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	event := f.event(t)
	assert.Equal(t, 1, event.PaidBookings)
	assert.Equal(t, int64(2000), event.Revenue)
}

// A failure path holding a copy read before a concurrent verify settled
// the payment must not overwrite it.
func TestStaleFailureAfterSettlementIsNoOp(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	stale, err := repository.NewPaymentRepository(f.db).GetByOrderID(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, stale.Status)

	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)

	result, err := f.uc.fail(context.Background(), stale, b, "pay_1", models.ReasonGatewayTimeout, nil, meta)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = f.uc.fail(context.Background(), stale, b, "pay_2", models.ReasonInvalidSignature, nil, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyPaid), "err = %v", err)

	current, err := repository.NewPaymentRepository(f.db).GetByOrderID(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, current.Status)
	assert.Equal(t, "pay_1", current.GatewayPaymentID)

	got := f.booking(t, b.ID)
	assert.Equal(t, bookingmodels.BookingConfirmed, got.Status)
	assert.Equal(t, bookingmodels.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, []models.TransactionType{models.TxOrderCreated, models.TxAttempted, models.TxSuccess}, f.logTypes(t, b.ID))
}

func TestVerifyFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		amount    int64
		signature string
		slow      time.Duration
		reason    string
	}{
		{name: "bad signature", status: razorpay.StatusCaptured, signature: "deadbeef", reason: models.ReasonInvalidSignature},
		{name: "authorized only", status: razorpay.StatusAuthorized, reason: models.ReasonNotCaptured},
		{name: "gateway timeout", status: razorpay.StatusCaptured, slow: 400 * time.Millisecond, reason: models.ReasonGatewayTimeout},
		{name: "short capture", status: razorpay.StatusCaptured, amount: 100, reason: "captured amount 100 does not match order amount 200000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.book(t)
			order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
			require.NoError(t, err)

			amount := order.Amount
			if tt.amount != 0 {
				amount = tt.amount
			}
			f.gateway.capture("pay_1", order.OrderID, tt.status, amount)
			if tt.slow > 0 {
				f.gateway.mu.Lock()
				f.gateway.slow["pay_1"] = tt.slow
				f.gateway.mu.Unlock()
			}
			req := f.verifyRequest(order.OrderID, "pay_1")
			if tt.signature != "" {
				req.Signature = tt.signature
			}

			_, err = f.uc.VerifyPayment(context.Background(), req, meta)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok, "error = %v", err)
			assert.Equal(t, apperrors.ErrCodePaymentFailed, appErr.Code)
			assert.Equal(t, apperrors.KindExternal, appErr.Kind())

			got := f.booking(t, b.ID)
			assert.Equal(t, bookingmodels.BookingPending, got.Status)
			assert.Equal(t, bookingmodels.PaymentFailed, got.PaymentStatus)

			event := f.event(t)
			assert.Equal(t, 2, event.TotalBookings, "capacity stays held after a failed attempt")
			assert.Equal(t, 0, event.PaidBookings)

			logs, err := f.uc.ListTransactions(context.Background(), b.ID)
			require.NoError(t, err)
			last := logs[len(logs)-1]
			assert.Equal(t, models.TxFailed, last.Type)
			assert.Contains(t, last.ErrorDescription, tt.reason)
		})
	}
}

func TestRetryAfterFailureCreatesNewOrder(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusFailed, order.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.Error(t, err)

	retry, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	assert.False(t, retry.Reused)
	assert.NotEqual(t, order.OrderID, retry.OrderID)
	assert.Equal(t, bookingmodels.PaymentPending, f.booking(t, b.ID).PaymentStatus)

	f.gateway.capture("pay_2", retry.OrderID, razorpay.StatusCaptured, retry.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(retry.OrderID, "pay_2"), meta)
	require.NoError(t, err)
	assert.Equal(t, bookingmodels.BookingConfirmed, f.booking(t, b.ID).Status)
}

func TestCreateOrderForPaidBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)

	_, err = f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyPaid))
}

func TestExpireStalePendingReleasesCapacity(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	assert.Equal(t, 2, f.event(t).TotalBookings)

	n, err := f.uc.ExpireStalePending(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := f.booking(t, b.ID)
	assert.Equal(t, bookingmodels.BookingCancelled, got.Status)
	assert.Equal(t, bookingmodels.PaymentFailed, got.PaymentStatus)
	event := f.event(t)
	assert.Equal(t, 0, event.TotalBookings)
	assert.Equal(t, 0, event.DateSlots[0].TimeSlots[0].CurrentBookings)

	n, err = f.uc.ExpireStalePending(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	// A late capture for an expired booking is refused and audited.
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePaymentFailed, appErr.Code)
	assert.Equal(t, models.ReasonBookingExpired, appErr.Details)
	assert.Equal(t, 0, f.event(t).PaidBookings)
}

func TestExpireLeavesFreshBookings(t *testing.T) {
	f := newFixture(t)
	f.book(t)
	n, err := f.uc.ExpireStalePending(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.event(t).TotalBookings)
}

func TestRefundReleasesCapacity(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	order, err := f.uc.CreatePaymentOrder(context.Background(), b.ID, meta)
	require.NoError(t, err)
	f.gateway.capture("pay_1", order.OrderID, razorpay.StatusCaptured, order.Amount)
	_, err = f.uc.VerifyPayment(context.Background(), f.verifyRequest(order.OrderID, "pay_1"), meta)
	require.NoError(t, err)

	result, err := f.uc.RefundPayment(context.Background(), b.ID, "admin@glitzfusion.in", meta)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", result.RefundID)
	assert.Equal(t, 2000.0, result.Amount)

	got := f.booking(t, b.ID)
	assert.Equal(t, bookingmodels.BookingCancelled, got.Status)
	assert.Equal(t, bookingmodels.PaymentRefunded, got.PaymentStatus)

	event := f.event(t)
	assert.Equal(t, 0, event.TotalBookings)
	assert.Equal(t, 0, event.PaidBookings)
	assert.Equal(t, int64(0), event.Revenue)

	types := f.logTypes(t, b.ID)
	assert.Equal(t, models.TxRefunded, types[len(types)-1])

	_, err = f.uc.RefundPayment(context.Background(), b.ID, "admin@glitzfusion.in", meta)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentNotCompleted))
	_, refunds := f.gateway.counts()
	assert.Equal(t, 1, refunds)
}

func TestRefundRequiresSettledPayment(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	_, err := f.uc.RefundPayment(context.Background(), b.ID, "admin@glitzfusion.in", meta)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentNotCompleted))
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
}
