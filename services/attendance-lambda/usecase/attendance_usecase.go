package usecase

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/common/email"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/validator"
	"github.com/glitzfusion/fusionx/services/attendance-lambda/models"
	"github.com/glitzfusion/fusionx/services/attendance-lambda/repository"
	bookingmodels "github.com/glitzfusion/fusionx/services/booking-lambda/models"
	bookingrepo "github.com/glitzfusion/fusionx/services/booking-lambda/repository"
	eventrepo "github.com/glitzfusion/fusionx/services/event-lambda/repository"
)

var tracer = otel.Tracer("github.com/glitzfusion/fusionx/services/attendance-lambda")

// attendanceStore is the part of the attendance repository the door
// flow reads and writes.
type attendanceStore interface {
	Create(ctx context.Context, a *models.Attendance) error
	ListForMember(ctx context.Context, bookingID, memberCode string) ([]models.Attendance, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Attendance, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Attendance, error)
}

// AttendanceUseCase validates entry codes at the door.
type AttendanceUseCase struct {
	db      *sql.DB
	records attendanceStore
	mailer  email.Sender
	jobs    *email.Dispatcher
	log     *logger.Logger
	now     func() time.Time
}

func NewAttendanceUseCase(sqlDB *sql.DB, mailer email.Sender, jobs *email.Dispatcher, log *logger.Logger) *AttendanceUseCase {
	if log == nil {
		log = logger.Default()
	}
	return &AttendanceUseCase{
		db:      sqlDB,
		records: repository.NewAttendanceRepository(sqlDB),
		mailer:  mailer,
		jobs:    jobs,
		log:     log.With("service", "attendance"),
		now:     time.Now,
	}
}

// ValidateCode redeems a booking code (the primary member) or a member
// code. A code that was already used is denied with its history; that is
// a normal result, not an error.
func (uc *AttendanceUseCase) ValidateCode(ctx context.Context, code, admin string, meta models.RequestMeta) (result *models.ValidationResult, err error) {
	ctx, span := tracer.Start(ctx, "attendance.validate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	code = validator.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.MissingField("code")
	}

	booking, member, err := uc.resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.code", booking.BookingCode), attribute.String("member.code", member.MemberCode))

	if !booking.IsPaid() {
		return nil, apperrors.PaymentNotCompleted()
	}

	event, err := eventrepo.NewEventRepository(uc.db).GetByID(ctx, booking.EventID)
	if err != nil {
		return nil, mapRepoError(err, "event")
	}

	previous, err := uc.records.ListForMember(ctx, booking.ID, member.MemberCode)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if len(previous) > 0 {
		return uc.deny(ctx, booking, member, code, event.Title, previous, admin)
	}

	attendance := &models.Attendance{
		ID:          uuid.Must(uuid.NewV7()).String(),
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		MemberCode:  member.MemberCode,
		EventID:     event.ID,
		EventTitle:  event.Title,
		MemberName:  member.Name,
		MemberEmail: member.Email,
		MemberPhone: member.Phone,
		ValidatedBy: admin,
		ValidatedAt: uc.now().UTC(),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}
	if err := uc.records.Create(ctx, attendance); err != nil {
		if !errors.Is(err, repository.ErrAlreadyValidated) {
			return nil, apperrors.DatabaseError(err)
		}
		// A concurrent request got in first.
		previous, err := uc.records.ListForMember(ctx, booking.ID, member.MemberCode)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		return uc.deny(ctx, booking, member, code, event.Title, previous, admin)
	}

	all, err := uc.records.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	result = buildResult(booking, member, code, event.Title, all)
	result.Success = true
	result.Outcome = models.OutcomeGranted
	result.Message = "entry granted"

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "ATTENDANCE_VALIDATED",
		Actor:    admin,
		Entity:   "booking",
		EntityID: booking.ID,
		Action:   "validate",
		Success:  true,
		Metadata: map[string]interface{}{"member_code": member.MemberCode, "checked_in": result.CheckedIn, "total": result.TotalMembers},
	})
	uc.sendWelcome(member, event.Title, attendance.ValidatedAt)
	return result, nil
}

// resolve tries the booking code first, then member codes.
func (uc *AttendanceUseCase) resolve(ctx context.Context, code string) (*bookingmodels.Booking, *bookingmodels.Member, error) {
	bookings := bookingrepo.NewBookingRepository(uc.db)
	booking, err := bookings.GetByCode(ctx, code)
	if err == nil {
		if len(booking.Members) == 0 {
			return nil, nil, apperrors.Internal("booking has no members")
		}
		return booking, &booking.Members[0], nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperrors.DatabaseError(err)
	}

	booking, err = bookings.GetByMemberCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperrors.New(apperrors.ErrCodeNotFound, "invalid code")
	}
	if err != nil {
		return nil, nil, apperrors.DatabaseError(err)
	}
	member := booking.FindMember(code)
	if member == nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeNotFound, "invalid code")
	}
	return booking, member, nil
}

func (uc *AttendanceUseCase) deny(ctx context.Context, b *bookingmodels.Booking, member *bookingmodels.Member, code, eventTitle string,
	history []models.Attendance, admin string) (*models.ValidationResult, error) {
	all, err := uc.records.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	result := buildResult(b, member, code, eventTitle, all)
	result.Outcome = models.OutcomeDenied
	result.Message = "access denied: code already used"
	result.History = history

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "ATTENDANCE_DENIED",
		Actor:    admin,
		Entity:   "booking",
		EntityID: b.ID,
		Action:   "validate",
		Success:  false,
		Metadata: map[string]interface{}{"member_code": member.MemberCode, "previous": len(history)},
	})
	return result, nil
}

func buildResult(b *bookingmodels.Booking, member *bookingmodels.Member, code, eventTitle string, all []models.Attendance) *models.ValidationResult {
	first := make(map[string]models.Attendance, len(all))
	for _, a := range all {
		if _, seen := first[a.MemberCode]; !seen {
			first[a.MemberCode] = a
		}
	}

	result := &models.ValidationResult{
		BookingCode:   b.BookingCode,
		ValidatedCode: code,
		EventID:       b.EventID,
		EventTitle:    eventTitle,
		TotalMembers:  len(b.Members),
		Roster:        make([]models.RosterEntry, 0, len(b.Members)),
	}
	for i, m := range b.Members {
		entry := models.RosterEntry{Name: m.Name, MemberCode: m.MemberCode, Primary: i == 0}
		if a, ok := first[m.MemberCode]; ok {
			at := a.ValidatedAt
			entry.Validated, entry.ValidatedAt, entry.ValidatedBy = true, &at, a.ValidatedBy
			result.CheckedIn++
		}
		if m.MemberCode == member.MemberCode {
			result.Member = entry
		}
		result.Roster = append(result.Roster, entry)
	}
	return result
}

func (uc *AttendanceUseCase) sendWelcome(member *bookingmodels.Member, eventTitle string, at time.Time) {
	if uc.mailer == nil || uc.jobs == nil || strings.TrimSpace(member.Email) == "" {
		return
	}
	msg := email.Message{
		To:       member.Email,
		Template: email.TemplateWelcome,
		Subject:  email.Subject(email.TemplateWelcome, eventTitle),
		Data: email.WelcomeData{
			Name:        member.Name,
			EventTitle:  eventTitle,
			MemberCode:  member.MemberCode,
			CheckedInAt: at.Format("15:04, 02 Jan 2006"),
		},
	}
	code := member.MemberCode
	uc.jobs.Go("welcome:"+code, func(ctx context.Context) error {
		err := uc.mailer.Send(ctx, msg)
		if err != nil {
			uc.log.LogEvent(logger.EventLog{
				Event:    "EMAIL_FAILED",
				Entity:   "member",
				EntityID: code,
				Action:   string(email.TemplateWelcome),
				Success:  false,
				Error:    err.Error(),
			})
		}
		return err
	})
}

// ListAttendance returns an event's check-ins, newest first.
func (uc *AttendanceUseCase) ListAttendance(ctx context.Context, eventID string) ([]models.Attendance, error) {
	if _, err := eventrepo.NewEventRepository(uc.db).GetByID(ctx, eventID); err != nil {
		return nil, mapRepoError(err, "event")
	}
	list, err := uc.records.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return list, nil
}

func mapRepoError(err error, resource string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound(resource)
	}
	return apperrors.DatabaseError(err)
}
