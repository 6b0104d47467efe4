package usecase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/common/email"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/media"
	"github.com/glitzfusion/fusionx/common/razorpay"
	"github.com/glitzfusion/fusionx/common/validator"
	bookingmodels "github.com/glitzfusion/fusionx/services/booking-lambda/models"
	bookingrepo "github.com/glitzfusion/fusionx/services/booking-lambda/repository"
	eventrepo "github.com/glitzfusion/fusionx/services/event-lambda/repository"
	"github.com/glitzfusion/fusionx/services/payment-lambda/models"
	"github.com/glitzfusion/fusionx/services/payment-lambda/repository"
)

var tracer = otel.Tracer("github.com/glitzfusion/fusionx/services/payment-lambda")

// Gateway is the part of the Razorpay client the orchestrator uses.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	Refund(ctx context.Context, paymentID string, amount int64) (*razorpay.Refund, error)
}

const expiryBatchSize = 100

const reasonAlreadyPaid = "booking already paid"

// PaymentUseCase orchestrates gateway orders, verification callbacks and
// refunds, and keeps the transaction log.
type PaymentUseCase struct {
	db      *sql.DB
	gateway Gateway
	mailer  email.Sender
	media   media.Store
	jobs    *email.Dispatcher
	log     *logger.Logger
	now     func() time.Time
}

func NewPaymentUseCase(sqlDB *sql.DB, gateway Gateway, mailer email.Sender, store media.Store,
	jobs *email.Dispatcher, log *logger.Logger) *PaymentUseCase {
	if log == nil {
		log = logger.Default()
	}
	if store == nil {
		store = media.Disabled{}
	}
	return &PaymentUseCase{
		db:      sqlDB,
		gateway: gateway,
		mailer:  mailer,
		media:   store,
		jobs:    jobs,
		log:     log.With("service", "payment"),
		now:     time.Now,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

// ============================================================
// CreatePaymentOrder - one pending gateway order per booking
// ============================================================
func (uc *PaymentUseCase) CreatePaymentOrder(ctx context.Context, bookingID string, meta models.RequestMeta) (resp *models.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "payment.create_order", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(bookingID) == "" {
		return nil, apperrors.MissingField("bookingId")
	}
	booking, err := bookingrepo.NewBookingRepository(uc.db).GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}
	if err := orderable(booking); err != nil {
		return nil, err
	}

	payments := repository.NewPaymentRepository(uc.db)
	if existing, err := payments.GetPending(ctx, booking.ID); err == nil {
		return uc.orderResponse(existing, booking, true), nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.DatabaseError(err)
	}

	amount := models.ToMinor(booking.TotalAmount)
	order, err := uc.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: booking.Currency,
		Receipt:  booking.BookingCode,
		Notes:    map[string]string{"booking_id": booking.ID, "event_id": booking.EventID},
	})
	if err != nil {
		uc.log.WithContext(ctx).WithError(err).Error("create gateway order for booking %s", booking.ID)
		return nil, apperrors.GatewayError(err)
	}

	now := uc.now().UTC()
	payment := &models.Payment{
		ID:             uuid.NewString(),
		BookingID:      booking.ID,
		GatewayOrderID: order.ID,
		Amount:         amount,
		Currency:       booking.Currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = db.WithTransaction(ctx, uc.db, func(tx *sql.Tx) error {
		bookings := bookingrepo.NewBookingRepository(tx)
		current, err := bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if err := orderable(current); err != nil {
			return err
		}
		if err := repository.NewPaymentRepository(tx).Create(ctx, payment); err != nil {
			return err
		}
		if current.PaymentStatus == bookingmodels.PaymentFailed {
			if err := bookings.SetPaymentStatus(ctx, current.ID, bookingmodels.PaymentPending, now); err != nil {
				return err
			}
		}
		entry := uc.entry(models.TxOrderCreated, order.Status, current, payment, meta)
		entry.GatewayResponse = mustJSON(order)
		return repository.NewTransactionLogRepository(tx).Append(ctx, entry)
	})
	if errors.Is(err, repository.ErrPendingExists) {
		// A concurrent call won; our gateway order is left unused.
		uc.log.WithContext(ctx).Warn("gateway order %s superseded by a concurrent order for booking %s", order.ID, booking.ID)
		winner, err := payments.GetPending(ctx, booking.ID)
		if err != nil {
			return nil, mapRepoError(err, "payment")
		}
		return uc.orderResponse(winner, booking, true), nil
	}
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "PAYMENT_ORDER_CREATED",
		Entity:   "booking",
		EntityID: booking.ID,
		Action:   "create_order",
		Success:  true,
		Metadata: map[string]interface{}{"order_id": order.ID, "amount": amount, "currency": booking.Currency},
	})
	return uc.orderResponse(payment, booking, false), nil
}

func orderable(b *bookingmodels.Booking) error {
	if b.IsPaid() {
		return apperrors.AlreadyPaid()
	}
	if b.Status != bookingmodels.BookingPending {
		return apperrors.InvalidState(fmt.Sprintf("booking is %s", b.Status))
	}
	return nil
}

func (uc *PaymentUseCase) orderResponse(p *models.Payment, b *bookingmodels.Booking, reused bool) *models.OrderResponse {
	return &models.OrderResponse{
		PaymentID:   p.ID,
		OrderID:     p.GatewayOrderID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		KeyID:       uc.gateway.KeyID(),
		BookingCode: b.BookingCode,
		Reused:      reused,
	}
}

// ============================================================
// VerifyPayment - checkout callback
// ============================================================

type verifyOutcome int

const (
	outcomeSuccess verifyOutcome = iota
	outcomeAlreadyDone
	outcomeExpired
	outcomeDuplicate
)

func (uc *PaymentUseCase) VerifyPayment(ctx context.Context, req *models.VerifyRequest, meta models.RequestMeta) (result *models.VerifyResult, err error) {
	ctx, span := tracer.Start(ctx, "payment.verify", trace.WithAttributes(attribute.String("gateway.order_id", req.OrderID)))
	defer func() { endSpan(span, err) }()

	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	payment, err := repository.NewPaymentRepository(uc.db).GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, mapRepoError(err, "payment")
	}
	booking, err := bookingrepo.NewBookingRepository(uc.db).GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}
	span.SetAttributes(attribute.String("booking.code", booking.BookingCode))

	if result, done, err := settled(payment, booking, req.PaymentID); done {
		return result, err
	}

	attempt := uc.entry(models.TxAttempted, string(payment.Status), booking, payment, meta)
	attempt.GatewayPaymentID = req.PaymentID
	if err := repository.NewTransactionLogRepository(uc.db).Append(ctx, attempt); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	if !uc.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return uc.fail(ctx, payment, booking, req.PaymentID, models.ReasonInvalidSignature, nil, meta)
	}

	fetched, err := uc.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		reason := "gateway error: " + err.Error()
		if errors.Is(err, razorpay.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			reason = models.ReasonGatewayTimeout
		}
		return uc.fail(ctx, payment, booking, req.PaymentID, reason, nil, meta)
	}
	switch {
	case !fetched.IsCaptured():
		return uc.fail(ctx, payment, booking, req.PaymentID, models.ReasonNotCaptured, fetched, meta)
	case fetched.OrderID != "" && fetched.OrderID != payment.GatewayOrderID:
		return uc.fail(ctx, payment, booking, req.PaymentID, "payment belongs to another order", fetched, meta)
	case fetched.Amount != payment.Amount:
		return uc.fail(ctx, payment, booking, req.PaymentID,
			fmt.Sprintf("captured amount %d does not match order amount %d", fetched.Amount, payment.Amount), fetched, meta)
	}

	var (
		outcome    verifyOutcome
		eventTitle string
	)
	err = db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
		now := uc.now().UTC()
		payments := repository.NewPaymentRepository(tx)
		bookings := bookingrepo.NewBookingRepository(tx)
		logs := repository.NewTransactionLogRepository(tx)

		current, err := payments.GetByOrderID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if current.Status == models.StatusCompleted {
			outcome = outcomeAlreadyDone
			return nil
		}

		moved, err := bookings.Transition(ctx, booking.ID, []bookingmodels.BookingStatus{bookingmodels.BookingPending},
			bookingmodels.BookingConfirmed, bookingmodels.PaymentPaid, now)
		if err != nil {
			return err
		}
		if !moved {
			latest, err := bookings.GetByID(ctx, booking.ID)
			if err != nil {
				return err
			}
			reason := reasonAlreadyPaid
			outcome = outcomeDuplicate
			if latest.Status == bookingmodels.BookingCancelled {
				reason = models.ReasonBookingExpired
				outcome = outcomeExpired
			}
			// Money moved for a booking that can no longer use it; recorded
			// for a manual refund.
			if _, err := payments.MarkFailed(ctx, current.ID, req.PaymentID, reason, now); err != nil {
				return err
			}
			entry := uc.entry(models.TxFailed, string(models.StatusFailed), latest, current, meta)
			entry.GatewayPaymentID = req.PaymentID
			entry.ErrorDescription = reason
			entry.GatewayResponse = fetched.Raw
			return logs.Append(ctx, entry)
		}

		if ok, err := payments.MarkCompleted(ctx, current.ID, req.PaymentID, fetched.Method, now); err != nil {
			return err
		} else if !ok {
			return db.ErrStaleVersion
		}

		events := eventrepo.NewEventRepository(tx)
		event, err := events.GetByID(ctx, booking.EventID)
		if err != nil {
			return err
		}
		event.RecordPayment(booking.TicketCount, booking.TotalAmount)
		if err := events.Save(ctx, event, now); err != nil {
			return err
		}
		eventTitle = event.Title

		entry := uc.entry(models.TxSuccess, fetched.Status, booking, current, meta)
		entry.GatewayPaymentID = req.PaymentID
		entry.GatewayResponse = fetched.Raw
		outcome = outcomeSuccess
		return logs.Append(ctx, entry)
	})
	if err != nil {
		return nil, mapRepoError(err, "payment")
	}

	switch outcome {
	case outcomeAlreadyDone:
		return successResult(booking, fetched.Status), nil
	case outcomeExpired:
		uc.logFailure(ctx, booking, models.ReasonBookingExpired)
		return nil, apperrors.PaymentFailed(models.ReasonBookingExpired).WithField("gatewayStatus", fetched.Status)
	case outcomeDuplicate:
		uc.logFailure(ctx, booking, reasonAlreadyPaid)
		return nil, apperrors.AlreadyPaid()
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "PAYMENT_SUCCESS",
		Actor:    booking.PrimaryContact().Email,
		Entity:   "booking",
		EntityID: booking.ID,
		Action:   "verify",
		Success:  true,
		Metadata: map[string]interface{}{
			"booking_code": booking.BookingCode,
			"payment_id":   req.PaymentID,
			"method":       fetched.Method,
			"amount":       payment.Amount,
		},
	})
	booking.Status, booking.PaymentStatus = bookingmodels.BookingConfirmed, bookingmodels.PaymentPaid
	uc.sendPaymentConfirmed(booking, eventTitle, req.PaymentID)
	return successResult(booking, fetched.Status), nil
}

func successResult(b *bookingmodels.Booking, gatewayStatus string) *models.VerifyResult {
	return &models.VerifyResult{
		Success:       true,
		BookingCode:   b.BookingCode,
		PaymentStatus: string(bookingmodels.PaymentPaid),
		Message:       "payment verified",
		GatewayStatus: gatewayStatus,
	}
}

// settled resolves a verify against a payment that is already final. done
// is false while the payment can still be settled.
func settled(p *models.Payment, b *bookingmodels.Booking, gatewayPaymentID string) (*models.VerifyResult, bool, error) {
	switch p.Status {
	case models.StatusCompleted:
		if p.GatewayPaymentID == gatewayPaymentID {
			return successResult(b, razorpay.StatusCaptured), true, nil
		}
		return nil, true, apperrors.AlreadyPaid()
	case models.StatusRefunded:
		return nil, true, apperrors.InvalidState("payment was refunded")
	}
	return nil, false, nil
}

var errSettledElsewhere = errors.New("payment settled by another call")

// fail persists a failed attempt. Reserved capacity is left held. A
// payment settled by a concurrent verify is left alone and that outcome
// is returned instead.
func (uc *PaymentUseCase) fail(ctx context.Context, p *models.Payment, b *bookingmodels.Booking, gatewayPaymentID, reason string,
	fetched *razorpay.Payment, meta models.RequestMeta) (*models.VerifyResult, error) {
	gatewayStatus := ""
	err := db.WithTransaction(ctx, uc.db, func(tx *sql.Tx) error {
		now := uc.now().UTC()
		marked, err := repository.NewPaymentRepository(tx).MarkFailed(ctx, p.ID, gatewayPaymentID, reason, now)
		if err != nil {
			return err
		}
		if !marked {
			return errSettledElsewhere
		}
		if err := bookingrepo.NewBookingRepository(tx).SetPaymentStatus(ctx, b.ID, bookingmodels.PaymentFailed, now); err != nil {
			return err
		}
		entry := uc.entry(models.TxFailed, string(models.StatusFailed), b, p, meta)
		entry.GatewayPaymentID = gatewayPaymentID
		entry.ErrorDescription = reason
		if fetched != nil {
			gatewayStatus = fetched.Status
			entry.ErrorCode = fetched.ErrorCode
			if fetched.ErrorDescription != "" {
				entry.ErrorDescription = reason + ": " + fetched.ErrorDescription
			}
			entry.GatewayResponse = fetched.Raw
		}
		return repository.NewTransactionLogRepository(tx).Append(ctx, entry)
	})
	if errors.Is(err, errSettledElsewhere) {
		latest, err := repository.NewPaymentRepository(uc.db).GetByOrderID(ctx, p.GatewayOrderID)
		if err != nil {
			return nil, mapRepoError(err, "payment")
		}
		if result, done, err := settled(latest, b, gatewayPaymentID); done {
			return result, err
		}
		return nil, apperrors.InvalidState("payment is " + string(latest.Status))
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	uc.logFailure(ctx, b, reason)

	appErr := apperrors.PaymentFailed(reason).WithField("bookingCode", b.BookingCode)
	if gatewayStatus != "" {
		appErr.WithField("gatewayStatus", gatewayStatus)
	}
	return nil, appErr
}

func (uc *PaymentUseCase) logFailure(ctx context.Context, b *bookingmodels.Booking, reason string) {
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "PAYMENT_FAILED",
		Entity:   "booking",
		EntityID: b.ID,
		Action:   "verify",
		Success:  false,
		Error:    reason,
		Metadata: map[string]interface{}{"booking_code": b.BookingCode},
	})
}

// ============================================================
// RefundPayment - admin refund of a settled booking
// ============================================================
func (uc *PaymentUseCase) RefundPayment(ctx context.Context, bookingID, admin string, meta models.RequestMeta) (result *models.RefundResult, err error) {
	ctx, span := tracer.Start(ctx, "payment.refund", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	booking, err := bookingrepo.NewBookingRepository(uc.db).GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}
	payment, err := repository.NewPaymentRepository(uc.db).GetCompleted(ctx, booking.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.PaymentNotCompleted()
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	refund, err := uc.gateway.Refund(ctx, payment.GatewayPaymentID, payment.Amount)
	if err != nil {
		return nil, apperrors.GatewayError(err)
	}

	err = db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
		now := uc.now().UTC()
		ok, err := repository.NewPaymentRepository(tx).MarkRefunded(ctx, payment.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("payment was already refunded")
		}
		if _, err := bookingrepo.NewBookingRepository(tx).Transition(ctx, booking.ID, nil,
			bookingmodels.BookingCancelled, bookingmodels.PaymentRefunded, now); err != nil {
			return err
		}

		events := eventrepo.NewEventRepository(tx)
		event, err := events.GetByID(ctx, booking.EventID)
		if err != nil {
			return err
		}
		if err := event.Release(booking.SelectedDate, booking.SelectedTime, booking.PricingCategory, booking.TicketCount); err != nil {
			return err
		}
		event.ReversePayment(booking.TicketCount, booking.TotalAmount)
		if err := events.Save(ctx, event, now); err != nil {
			return err
		}

		entry := uc.entry(models.TxRefunded, refund.Status, booking, payment, meta)
		entry.GatewayPaymentID = payment.GatewayPaymentID
		entry.GatewayResponse = refund.Raw
		return repository.NewTransactionLogRepository(tx).Append(ctx, entry)
	})
	if err != nil {
		uc.log.WithContext(ctx).WithError(err).Error("refund %s issued at the gateway but not recorded for booking %s", refund.ID, booking.ID)
		return nil, mapRepoError(err, "payment")
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "PAYMENT_REFUNDED",
		Actor:    admin,
		Entity:   "booking",
		EntityID: booking.ID,
		Action:   "refund",
		Success:  true,
		Metadata: map[string]interface{}{"refund_id": refund.ID, "amount": payment.Amount},
	})
	return &models.RefundResult{
		BookingID: booking.ID,
		RefundID:  refund.ID,
		Amount:    models.ToMajor(payment.Amount),
		Currency:  payment.Currency,
	}, nil
}

// ListTransactions returns a booking's audit trail.
func (uc *PaymentUseCase) ListTransactions(ctx context.Context, bookingID string) ([]models.TransactionLog, error) {
	if _, err := bookingrepo.NewBookingRepository(uc.db).GetByID(ctx, bookingID); err != nil {
		return nil, mapRepoError(err, "booking")
	}
	logs, err := repository.NewTransactionLogRepository(uc.db).ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return logs, nil
}

// ============================================================
// ExpireStalePending - releases capacity held by abandoned bookings
// ============================================================
func (uc *PaymentUseCase) ExpireStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := bookingrepo.NewBookingRepository(uc.db).ListStalePending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		b := &stale[i]
		released := false
		err := db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
			released = false
			now := uc.now().UTC()
			moved, err := bookingrepo.NewBookingRepository(tx).Transition(ctx, b.ID,
				[]bookingmodels.BookingStatus{bookingmodels.BookingPending},
				bookingmodels.BookingCancelled, bookingmodels.PaymentFailed, now)
			if err != nil || !moved {
				return err
			}

			payments := repository.NewPaymentRepository(tx)
			pending, err := payments.GetPending(ctx, b.ID)
			switch {
			case err == nil:
				if _, err := payments.MarkFailed(ctx, pending.ID, "", models.ReasonBookingExpired, now); err != nil {
					return err
				}
			case errors.Is(err, db.ErrNotFound):
				pending = nil
			default:
				return err
			}

			events := eventrepo.NewEventRepository(tx)
			event, err := events.GetByID(ctx, b.EventID)
			if err != nil {
				return err
			}
			if err := event.Release(b.SelectedDate, b.SelectedTime, b.PricingCategory, b.TicketCount); err != nil {
				return err
			}
			if err := events.Save(ctx, event, now); err != nil {
				return err
			}

			entry := uc.entry(models.TxFailed, string(models.StatusFailed), b, pending, models.RequestMeta{})
			entry.ErrorDescription = models.ReasonBookingExpired
			released = true
			return repository.NewTransactionLogRepository(tx).Append(ctx, entry)
		})
		if err != nil {
			uc.log.WithError(err).Error("expire booking %s", b.ID)
			continue
		}
		if !released {
			continue
		}
		expired++
		uc.log.LogEvent(logger.EventLog{
			Event:    "BOOKING_EXPIRED",
			Entity:   "booking",
			EntityID: b.ID,
			Action:   "expire",
			Success:  true,
			Metadata: map[string]interface{}{"booking_code": b.BookingCode, "tickets": b.TicketCount},
		})
	}
	return expired, nil
}

// ============================================================
// Helpers
// ============================================================

func (uc *PaymentUseCase) entry(t models.TransactionType, status string, b *bookingmodels.Booking, p *models.Payment, meta models.RequestMeta) *models.TransactionLog {
	id := uuid.Must(uuid.NewV7())
	l := &models.TransactionLog{
		ID:            id.String(),
		TransactionID: "txn_" + strings.ReplaceAll(id.String(), "-", ""),
		BookingID:     b.ID,
		Type:          t,
		Status:        status,
		Amount:        float64(b.TotalAmount),
		Currency:      b.Currency,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		Timestamp:     uc.now().UTC(),
	}
	if p != nil {
		l.PaymentID = p.ID
		l.Amount = models.ToMajor(p.Amount)
		l.GatewayOrderID = p.GatewayOrderID
		l.GatewayPaymentID = p.GatewayPaymentID
	}
	return l
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func mapRepoError(err error, resource string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, db.ErrStaleVersion):
		return apperrors.Conflict(fmt.Sprintf("%s is being updated, please retry", resource)).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout().WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
