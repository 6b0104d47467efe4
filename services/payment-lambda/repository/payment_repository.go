package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/services/payment-lambda/models"
)

// ErrPendingExists is returned when the booking already has a pending
// payment. The pending_booking_id column is unique and set only while a
// payment is pending.
var ErrPendingExists = errors.New("booking already has a pending payment")

// PaymentRepository handles payment data access
type PaymentRepository struct {
	q db.Querier
}

func NewPaymentRepository(q db.Querier) *PaymentRepository {
	return &PaymentRepository{q: q}
}

const paymentColumns = `id, booking_id, gateway_order_id, gateway_payment_id, amount, currency, status,
	payment_method, failure_reason, created_at, updated_at, completed_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var (
		p                    models.Payment
		status               string
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Amount, &p.Currency, &status,
		&p.PaymentMethod, &p.FailureReason, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	p.CreatedAt = db.FromMillis(createdAt)
	p.UpdatedAt = db.FromMillis(updatedAt)
	p.CompletedAt = db.NullMillis(completedAt)
	return &p, nil
}

// Create inserts a pending payment.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO payments (id, booking_id, pending_booking_id, gateway_order_id,
			gateway_payment_id, amount, currency, status, payment_method, failure_reason, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.BookingID, p.BookingID, p.GatewayOrderID, p.GatewayPaymentID, p.Amount, p.Currency,
		string(models.StatusPending), p.PaymentMethod, p.FailureReason,
		db.ToMillis(p.CreatedAt), db.ToMillis(p.UpdatedAt), db.MillisOrNull(p.CompletedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPendingExists
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	p.Status = models.StatusPending
	return nil
}

func (r *PaymentRepository) getOne(ctx context.Context, where string, args ...any) (*models.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.getOne(ctx, `gateway_order_id = ?`, orderID)
}

// GetPending returns the booking's pending payment, if any.
func (r *PaymentRepository) GetPending(ctx context.Context, bookingID string) (*models.Payment, error) {
	return r.getOne(ctx, `pending_booking_id = ?`, bookingID)
}

// GetCompleted returns the booking's settled payment, if any.
func (r *PaymentRepository) GetCompleted(ctx context.Context, bookingID string) (*models.Payment, error) {
	return r.getOne(ctx, `booking_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		bookingID, string(models.StatusCompleted))
}

// ListByBooking returns every attempt for a booking, oldest first.
func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ?
		ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkFailed records a failed attempt unless the payment already settled.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id, gatewayPaymentID, reason string, now time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE payments SET status = ?, pending_booking_id = NULL, failure_reason = ?,
			gateway_payment_id = CASE WHEN ? = '' THEN gateway_payment_id ELSE ? END, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(models.StatusFailed), reason, gatewayPaymentID, gatewayPaymentID, db.ToMillis(now),
		id, string(models.StatusPending), string(models.StatusFailed))
}

// MarkCompleted settles a pending or previously failed payment. It
// reports false when another call settled it first.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id, gatewayPaymentID, method string, now time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE payments SET status = ?, pending_booking_id = NULL, gateway_payment_id = ?,
			payment_method = ?, failure_reason = '', updated_at = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(models.StatusCompleted), gatewayPaymentID, method, db.ToMillis(now), db.ToMillis(now),
		id, string(models.StatusPending), string(models.StatusFailed))
}

func (r *PaymentRepository) MarkRefunded(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusRefunded), db.ToMillis(now), id, string(models.StatusCompleted))
}

func (r *PaymentRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}
	return n > 0, nil
}
