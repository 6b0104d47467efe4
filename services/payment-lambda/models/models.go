package models

import (
	"encoding/json"
	"time"
)

// PaymentStatus is the state of one payment attempt.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
)

// Payment is one gateway order for a booking. Amount is in minor units.
type Payment struct {
	ID               string        `json:"id"`
	BookingID        string        `json:"bookingId"`
	GatewayOrderID   string        `json:"gatewayOrderId"`
	GatewayPaymentID string        `json:"gatewayPaymentId,omitempty"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	PaymentMethod    string        `json:"paymentMethod,omitempty"`
	FailureReason    string        `json:"failureReason,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
}

// TransactionType classifies an audit entry.
type TransactionType string

const (
	TxOrderCreated TransactionType = "payment_order_created"
	TxAttempted    TransactionType = "payment_attempted"
	TxSuccess      TransactionType = "payment_success"
	TxFailed       TransactionType = "payment_failed"
	TxRefunded     TransactionType = "payment_refunded"
)

// TransactionLog is an append-only audit entry. Amount is in major units.
type TransactionLog struct {
	ID               string          `json:"id"`
	TransactionID    string          `json:"transactionId"`
	BookingID        string          `json:"bookingId"`
	PaymentID        string          `json:"paymentId,omitempty"`
	Type             TransactionType `json:"transactionType"`
	Status           string          `json:"status"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	GatewayOrderID   string          `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string          `json:"gatewayPaymentId,omitempty"`
	ErrorCode        string          `json:"errorCode,omitempty"`
	ErrorDescription string          `json:"errorDescription,omitempty"`
	GatewayResponse  json.RawMessage `json:"gatewayResponse,omitempty"`
	IPAddress        string          `json:"ipAddress,omitempty"`
	UserAgent        string          `json:"userAgent,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// RequestMeta is the caller context copied into audit rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Failure reasons recorded on payments.
const (
	ReasonInvalidSignature = "invalid signature"
	ReasonBookingExpired   = "booking expired"
	ReasonGatewayTimeout   = "gateway timeout"
	ReasonNotCaptured      = "payment not captured"
)

// ============================================================
// Request / response bodies
// ============================================================

type CreateOrderRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

// OrderResponse carries what the checkout widget needs.
type OrderResponse struct {
	PaymentID   string `json:"paymentId"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	BookingCode string `json:"bookingCode"`
	Reused      bool   `json:"reused"`
}

// VerifyRequest uses the field names the checkout widget posts back.
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type VerifyResult struct {
	Success       bool   `json:"success"`
	BookingCode   string `json:"bookingCode"`
	PaymentStatus string `json:"paymentStatus"`
	Message       string `json:"message"`
	// GatewayStatus is the status the gateway reported, for diagnostics.
	GatewayStatus string `json:"gatewayStatus,omitempty"`
}

type RefundRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

type RefundResult struct {
	BookingID string  `json:"bookingId"`
	RefundID  string  `json:"refundId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// ToMajor converts minor currency units for the audit trail.
func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}

// ToMinor converts a whole-unit price into gateway minor units.
func ToMinor(major int64) int64 {
	return major * 100
}
