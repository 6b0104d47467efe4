package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/services/booking-lambda/models"
	eventmodels "github.com/glitzfusion/fusionx/services/event-lambda/models"
)

// ErrDuplicateCode is returned when a booking or member code was taken
// between generation and insert.
var ErrDuplicateCode = errors.New("booking or member code already exists")

// BookingRepository handles booking data access
type BookingRepository struct {
	q db.Querier
}

func NewBookingRepository(q db.Querier) *BookingRepository {
	return &BookingRepository{q: q}
}

const bookingColumns = `id, booking_code, event_id, selected_date, selected_time, pricing_category,
	ticket_count, unit_price, total_amount, currency, status, payment_status, email_sent, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                         models.Booking
		category, status, payment string
		emailSent                 int
		createdAt, updatedAt      int64
	)
	err := row.Scan(&b.ID, &b.BookingCode, &b.EventID, &b.SelectedDate, &b.SelectedTime, &category,
		&b.TicketCount, &b.UnitPrice, &b.TotalAmount, &b.Currency, &status, &payment, &emailSent, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.PricingCategory = eventmodels.PricingCategory(category)
	b.Status = models.BookingStatus(status)
	b.PaymentStatus = models.PaymentStatus(payment)
	b.EmailSent = emailSent == 1
	b.CreatedAt = db.FromMillis(createdAt)
	b.UpdatedAt = db.FromMillis(updatedAt)
	return &b, nil
}

// Create inserts the booking and its members in position order.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	emailSent := 0
	if b.EmailSent {
		emailSent = 1
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.BookingCode, b.EventID, b.SelectedDate, b.SelectedTime, string(b.PricingCategory),
		b.TicketCount, b.UnitPrice, b.TotalAmount, b.Currency, string(b.Status), string(b.PaymentStatus),
		emailSent, db.ToMillis(b.CreatedAt), db.ToMillis(b.UpdatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	for i, m := range b.Members {
		_, err := r.q.ExecContext(ctx, `INSERT INTO booking_members (booking_id, position, name, email, phone, member_code)
			VALUES (?, ?, ?, ?, ?, ?)`, b.ID, i, m.Name, m.Email, m.Phone, m.MemberCode)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("insert booking member: %w", err)
		}
	}
	return nil
}

func (r *BookingRepository) loadMembers(ctx context.Context, b *models.Booking) error {
	rows, err := r.q.QueryContext(ctx, `SELECT name, email, phone, member_code FROM booking_members
		WHERE booking_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	b.Members = b.Members[:0]
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Name, &m.Email, &m.Phone, &m.MemberCode); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		b.Members = append(b.Members, m)
	}
	return rows.Err()
}

func (r *BookingRepository) getOne(ctx context.Context, query string, arg any) (*models.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if err := r.loadMembers(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID returns db.ErrNotFound when the booking does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

func (r *BookingRepository) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ?`, code)
}

// GetByMemberCode finds the booking one of whose members holds code.
func (r *BookingRepository) GetByMemberCode(ctx context.Context, code string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE id = (SELECT booking_id FROM booking_members WHERE member_code = ?)`, code)
}

// CodeExists checks booking and member codes together, since the door
// accepts either.
func (r *BookingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM bookings WHERE booking_code = ?) +
		(SELECT COUNT(*) FROM booking_members WHERE member_code = ?)`, code, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return n > 0, nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Members are loaded after the cursor is closed; a transaction may
	// hold the only connection.
	for i := range out {
		if err := r.loadMembers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListByEvent returns an event's bookings, newest first.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE event_id = ?
		ORDER BY created_at DESC, id`, eventID)
}

// ListStalePending returns unpaid pending bookings created before cutoff.
func (r *BookingRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = ? AND payment_status <> ? AND created_at < ?
		ORDER BY created_at, id LIMIT ?`,
		string(models.BookingPending), string(models.PaymentPaid), db.ToMillis(cutoff), limit)
}

// Transition sets status and payment status only while the booking is
// still in one of the from statuses. It reports whether the row changed.
func (r *BookingRepository) Transition(ctx context.Context, id string, from []models.BookingStatus,
	status models.BookingStatus, payment models.PaymentStatus, now time.Time) (bool, error) {
	query := `UPDATE bookings SET status = ?, payment_status = ?, updated_at = ? WHERE id = ?`
	args := []any{string(status), string(payment), db.ToMillis(now), id}
	if len(from) > 0 {
		query += ` AND status IN (?`
		args = append(args, string(from[0]))
		for _, s := range from[1:] {
			query += `, ?`
			args = append(args, string(s))
		}
		query += `)`
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	return n > 0, nil
}

// SetPaymentStatus records a payment outcome without touching status.
func (r *BookingRepository) SetPaymentStatus(ctx context.Context, id string, payment models.PaymentStatus, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE bookings SET payment_status = ?, updated_at = ?
		WHERE id = ? AND payment_status <> ?`, string(payment), db.ToMillis(now), id, string(models.PaymentPaid))
	if err != nil {
		return fmt.Errorf("update booking payment status: %w", err)
	}
	return nil
}

func (r *BookingRepository) MarkEmailSent(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE bookings SET email_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}
