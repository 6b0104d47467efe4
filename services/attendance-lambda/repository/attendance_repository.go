package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/services/attendance-lambda/models"
)

// ErrAlreadyValidated reports a lost insert race on (booking_id, member_code).
var ErrAlreadyValidated = errors.New("member code already validated")

type AttendanceRepository struct {
	q db.Querier
}

func NewAttendanceRepository(q db.Querier) *AttendanceRepository {
	return &AttendanceRepository{q: q}
}

const attendanceColumns = `id, booking_id, booking_code, member_code, event_id, event_title, member_name,
	member_email, member_phone, validated_by, validated_at, ip_address, user_agent`

func (r *AttendanceRepository) Create(ctx context.Context, a *models.Attendance) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BookingID, a.BookingCode, a.MemberCode, a.EventID, a.EventTitle, a.MemberName,
		a.MemberEmail, a.MemberPhone, a.ValidatedBy, db.ToMillis(a.ValidatedAt), a.IPAddress, a.UserAgent)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyValidated
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListByBooking returns every validation in the booking, oldest first.
func (r *AttendanceRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE booking_id = ?
		ORDER BY validated_at, id`, bookingID)
}

func (r *AttendanceRepository) ListForMember(ctx context.Context, bookingID, memberCode string) ([]models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE booking_id = ? AND member_code = ?
		ORDER BY validated_at, id`, bookingID, memberCode)
}

func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE event_id = ?
		ORDER BY validated_at DESC, id DESC`, eventID)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]models.Attendance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	out := []models.Attendance{}
	for rows.Next() {
		var (
			a           models.Attendance
			validatedAt int64
		)
		if err := rows.Scan(&a.ID, &a.BookingID, &a.BookingCode, &a.MemberCode, &a.EventID, &a.EventTitle,
			&a.MemberName, &a.MemberEmail, &a.MemberPhone, &a.ValidatedBy, &validatedAt, &a.IPAddress, &a.UserAgent); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		a.ValidatedAt = db.FromMillis(validatedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
