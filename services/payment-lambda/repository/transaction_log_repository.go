package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/services/payment-lambda/models"
)

// TransactionLogRepository appends and reads audit entries. There is no
// update or delete.
type TransactionLogRepository struct {
	q db.Querier
}

func NewTransactionLogRepository(q db.Querier) *TransactionLogRepository {
	return &TransactionLogRepository{q: q}
}

func (r *TransactionLogRepository) Append(ctx context.Context, l *models.TransactionLog) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO transaction_logs (id, transaction_id, booking_id, payment_id,
			transaction_type, status, amount, currency, gateway_order_id, gateway_payment_id, error_code,
			error_description, gateway_response, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TransactionID, l.BookingID, l.PaymentID, string(l.Type), l.Status, l.Amount, l.Currency,
		l.GatewayOrderID, l.GatewayPaymentID, l.ErrorCode, l.ErrorDescription, string(l.GatewayResponse),
		l.IPAddress, l.UserAgent, db.ToMillis(l.Timestamp))
	if err != nil {
		return fmt.Errorf("append transaction log: %w", err)
	}
	return nil
}

// ListByBooking returns a booking's audit trail in the order it happened.
// Ids are UUIDv7, so they break ties within one millisecond.
func (r *TransactionLogRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.TransactionLog, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, transaction_id, booking_id, payment_id, transaction_type, status,
			amount, currency, gateway_order_id, gateway_payment_id, error_code, error_description, gateway_response,
			ip_address, user_agent, created_at
		FROM transaction_logs WHERE booking_id = ? ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list transaction logs: %w", err)
	}
	defer rows.Close()

	out := []models.TransactionLog{}
	for rows.Next() {
		var (
			l        models.TransactionLog
			txType   string
			response string
			created  int64
		)
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.BookingID, &l.PaymentID, &txType, &l.Status, &l.Amount,
			&l.Currency, &l.GatewayOrderID, &l.GatewayPaymentID, &l.ErrorCode, &l.ErrorDescription, &response,
			&l.IPAddress, &l.UserAgent, &created); err != nil {
			return nil, fmt.Errorf("scan transaction log: %w", err)
		}
		l.Type = models.TransactionType(txType)
		if response != "" && json.Valid([]byte(response)) {
			l.GatewayResponse = json.RawMessage(response)
		}
		l.Timestamp = db.FromMillis(created)
		out = append(out, l)
	}
	return out, rows.Err()
}
