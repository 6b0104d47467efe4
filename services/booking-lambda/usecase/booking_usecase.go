package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glitzfusion/fusionx/common/codes"
	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/common/email"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/validator"
	"github.com/glitzfusion/fusionx/services/booking-lambda/models"
	"github.com/glitzfusion/fusionx/services/booking-lambda/repository"
	eventmodels "github.com/glitzfusion/fusionx/services/event-lambda/models"
	eventrepo "github.com/glitzfusion/fusionx/services/event-lambda/repository"
)

var tracer = otel.Tracer("github.com/glitzfusion/fusionx/services/booking-lambda")

// maxCodeRetries bounds how often a booking is retried after its fresh
// code lost an insert race.
const maxCodeRetries = 3

// BookingUseCase handles booking business logic
type BookingUseCase struct {
	db           *sql.DB
	mailer       email.Sender
	jobs         *email.Dispatcher
	log          *logger.Logger
	now          func() time.Time
	bookingCodes *codes.Generator
	memberCodes  *codes.Generator
}

// NewBookingUseCase creates a new booking use case
func NewBookingUseCase(sqlDB *sql.DB, mailer email.Sender, jobs *email.Dispatcher, log *logger.Logger) *BookingUseCase {
	if log == nil {
		log = logger.Default()
	}
	return &BookingUseCase{
		db:           sqlDB,
		mailer:       mailer,
		jobs:         jobs,
		log:          log.With("service", "booking"),
		now:          time.Now,
		bookingCodes: codes.BookingCodes(),
		memberCodes:  codes.MemberCodes(),
	}
}

// ============================================================
// CreateBooking - reserve seats and hold them until payment
// ============================================================
func (uc *BookingUseCase) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingConfirmation, error) {
	ctx, span := tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("event.id", req.EventID),
		attribute.String("booking.category", string(req.PricingCategory)),
		attribute.Int("booking.members", len(req.Members)),
	))
	defer span.End()

	confirmation, eventTitle, err := uc.createBooking(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		uc.log.WithContext(ctx).LogEvent(logger.EventLog{
			Event:    "BOOKING_CREATED",
			Entity:   "event",
			EntityID: req.EventID,
			Action:   "create_booking",
			Success:  false,
			Error:    err.Error(),
		})
		return nil, err
	}
	booking := confirmation.Booking
	span.SetAttributes(attribute.String("booking.code", booking.BookingCode))

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "BOOKING_CREATED",
		Actor:    booking.PrimaryContact().Email,
		Entity:   "booking",
		EntityID: booking.ID,
		Action:   "create",
		Success:  true,
		Metadata: map[string]interface{}{
			"booking_code": booking.BookingCode,
			"event_id":     booking.EventID,
			"tickets":      booking.TicketCount,
			"total":        booking.TotalAmount,
		},
	})
	uc.sendBookingReceived(booking, eventTitle)
	return confirmation, nil
}

func (uc *BookingUseCase) createBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.BookingConfirmation, string, error) {
	switch {
	case strings.TrimSpace(req.EventID) == "":
		return nil, "", apperrors.MissingField("eventId")
	case strings.TrimSpace(req.SelectedDate) == "":
		return nil, "", apperrors.MissingField("selectedDate")
	case strings.TrimSpace(req.SelectedTime) == "":
		return nil, "", apperrors.MissingField("selectedTime")
	case req.PricingCategory == "":
		return nil, "", apperrors.MissingField("pricingCategory")
	}

	var (
		confirmation *models.BookingConfirmation
		eventTitle   string
		err          error
	)
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		err = db.WithRetry(ctx, uc.db, db.DefaultRetryAttempts, func(tx *sql.Tx) error {
			c, title, err := uc.reserve(ctx, tx, req)
			if err != nil {
				return err
			}
			confirmation, eventTitle = c, title
			return nil
		})
		if !errors.Is(err, repository.ErrDuplicateCode) {
			break
		}
		uc.log.Warn("booking code collided on insert, retrying (attempt %d)", attempt+1)
	}
	if err != nil {
		return nil, "", mapRepoError(err, "event")
	}
	return confirmation, eventTitle, nil
}

// reserve runs the checks in order and writes the booking and the event
// in one transaction. Nothing is written when a check fails.
func (uc *BookingUseCase) reserve(ctx context.Context, tx *sql.Tx, req *models.CreateBookingRequest) (*models.BookingConfirmation, string, error) {
	events := eventrepo.NewEventRepository(tx)
	bookings := repository.NewBookingRepository(tx)
	now := uc.now().UTC()

	event, err := events.GetByID(ctx, strings.TrimSpace(req.EventID))
	if err != nil {
		return nil, "", err
	}
	if event.Status != eventmodels.StatusPublished {
		return nil, "", apperrors.EventNotOpen(string(event.Status))
	}
	ds, ts, err := event.FindSlot(req.SelectedDate, req.SelectedTime)
	if err != nil {
		return nil, "", err
	}
	tier, err := event.FindTier(req.PricingCategory)
	if err != nil {
		return nil, "", err
	}
	members, err := normalizeMembers(req.Members)
	if err != nil {
		return nil, "", err
	}
	if err := eventmodels.CheckCapacity(ts, tier, len(members)); err != nil {
		return nil, "", err
	}

	// Quote first: the price may already be due to rise.
	event.ApplyDynamicPricing()
	unitPrice := tier.CurrentPrice
	date, label := ds.Date, ts.Label()

	if err := event.Reserve(date, ts.StartTime, tier.Category, len(members)); err != nil {
		return nil, "", err
	}
	// This booking may have pushed the event over the threshold for the
	// next buyer.
	if event.ApplyDynamicPricing() {
		uc.log.With("event_id", event.ID).Info("dynamic pricing applied at %.1f%% booked", event.BookingPercentage())
	}
	event.UpdateSoldOutStatus()
	if err := events.Save(ctx, event, now); err != nil {
		return nil, "", err
	}

	taken := map[string]bool{}
	exists := func(ctx context.Context, code string) (bool, error) {
		if taken[code] {
			return true, nil
		}
		return bookings.CodeExists(ctx, code)
	}
	bookingCode, err := uc.bookingCodes.Generate(ctx, exists)
	if err != nil {
		return nil, "", err
	}
	taken[bookingCode] = true
	for i := range members {
		code, err := uc.memberCodes.Generate(ctx, exists)
		if err != nil {
			return nil, "", err
		}
		taken[code] = true
		members[i].MemberCode = code
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		BookingCode:     bookingCode,
		EventID:         event.ID,
		SelectedDate:    date,
		SelectedTime:    label,
		PricingCategory: tier.Category,
		TicketCount:     len(members),
		UnitPrice:       unitPrice,
		TotalAmount:     unitPrice * int64(len(members)),
		Currency:        event.Currency,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
		Members:         members,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := bookings.Create(ctx, booking); err != nil {
		return nil, "", err
	}

	nextTier, err := event.FindTier(booking.PricingCategory)
	if err != nil {
		return nil, "", err
	}
	return &models.BookingConfirmation{
		Booking:       booking,
		BookingCode:   booking.BookingCode,
		TotalAmount:   booking.TotalAmount,
		Currency:      booking.Currency,
		NextUnitPrice: nextTier.CurrentPrice,
	}, event.Title, nil
}

func normalizeMembers(in []models.MemberInput) ([]models.Member, error) {
	if len(in) == 0 {
		return nil, apperrors.InvalidInput("members", "at least one member is required")
	}
	out := make([]models.Member, 0, len(in))
	for i, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		m.Email = strings.ToLower(strings.TrimSpace(m.Email))
		m.Phone = strings.TrimSpace(m.Phone)
		if err := validator.StructAt(fmt.Sprintf("members[%d]", i), &m); err != nil {
			return nil, err
		}
		out = append(out, models.Member{Name: m.Name, Email: m.Email, Phone: validator.NormalizePhone(m.Phone)})
	}
	return out, nil
}

func (uc *BookingUseCase) sendBookingReceived(b *models.Booking, eventTitle string) {
	if uc.mailer == nil || uc.jobs == nil {
		return
	}
	primary := b.PrimaryContact()
	if primary.Email == "" {
		return
	}
	data := email.BookingReceivedData{
		Name:        primary.Name,
		EventTitle:  eventTitle,
		BookingCode: b.BookingCode,
		Date:        b.SelectedDate,
		Time:        b.SelectedTime,
		Category:    string(b.PricingCategory),
		Quantity:    b.TicketCount,
		Total:       models.FormatAmount(b.TotalAmount, b.Currency),
	}
	for _, m := range b.Members {
		data.Members = append(data.Members, email.MemberLine{Name: m.Name, Email: m.Email, MemberCode: m.MemberCode})
	}
	msg := email.Message{
		To:       primary.Email,
		Template: email.TemplateBookingReceived,
		Subject:  email.Subject(email.TemplateBookingReceived, eventTitle),
		Data:     data,
	}

	uc.jobs.Go("booking_received:"+b.BookingCode, func(ctx context.Context) error {
		if err := uc.mailer.Send(ctx, msg); err != nil {
			uc.log.LogEvent(logger.EventLog{
				Event:    "EMAIL_FAILED",
				Entity:   "booking",
				EntityID: b.ID,
				Action:   string(email.TemplateBookingReceived),
				Success:  false,
				Error:    err.Error(),
			})
			return err
		}
		return repository.NewBookingRepository(uc.db).MarkEmailSent(ctx, b.ID)
	})
}

// ============================================================
// Queries
// ============================================================

func (uc *BookingUseCase) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.MissingField("id")
	}
	b, err := repository.NewBookingRepository(uc.db).GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}
	return b, nil
}

// GetBookingByCode accepts the code as typed; case and spaces are ignored.
func (uc *BookingUseCase) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	code = validator.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.MissingField("code")
	}
	b, err := repository.NewBookingRepository(uc.db).GetByCode(ctx, code)
	if err != nil {
		return nil, mapRepoError(err, "booking")
	}
	return b, nil
}

// ListBookings returns every booking of an event for the admin screens.
func (uc *BookingUseCase) ListBookings(ctx context.Context, eventID string) ([]models.Booking, error) {
	if _, err := eventrepo.NewEventRepository(uc.db).GetByID(ctx, eventID); err != nil {
		return nil, mapRepoError(err, "event")
	}
	list, err := repository.NewBookingRepository(uc.db).ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if list == nil {
		list = []models.Booking{}
	}
	return list, nil
}

func mapRepoError(err error, resource string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, db.ErrStaleVersion):
		return apperrors.Conflict("tickets are in high demand, please retry").WithCause(err)
	case errors.Is(err, repository.ErrDuplicateCode), errors.Is(err, codes.ErrExhausted):
		return apperrors.Internal("could not allocate a booking code").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout().WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
