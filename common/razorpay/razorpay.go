package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/constants"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/razorpay/razorpay-go/utils"
)

// Payment statuses reported by the gateway.
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
)

// DefaultBaseURL is the API host; resource paths carry the /v1 prefix.
const DefaultBaseURL = constants.BASE_URL

// ErrTimeout marks a call that exceeded the configured timeout.
var ErrTimeout = errors.New("razorpay: request timed out")

// Config holds Razorpay configuration
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// newMu serializes SDK construction, which swaps a package-level request.
var newMu sync.Mutex

// Client wraps the Razorpay SDK with context deadlines and typed results.
type Client struct {
	config Config
	api    *rzp.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(strings.TrimRight(config.BaseURL, "/"), "/v1")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	newMu.Lock()
	api := rzp.NewClient(config.KeyID, config.KeySecret)
	newMu.Unlock()
	// Every resource of one SDK client shares this request.
	api.Order.Request.BaseURL = config.BaseURL
	api.Order.Request.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{config: config, api: api}
}

// KeyID is handed to the checkout widget alongside the order id.
func (c *Client) KeyID() string {
	return c.config.KeyID
}

// OrderRequest is the body of POST /v1/orders. Amount is in minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	AmountDue  int64           `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

type Payment struct {
	ID               string `json:"id"`
	Entity           string `json:"entity"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	OrderID          string `json:"order_id"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`

	// Raw is the gateway entity as returned, kept for the audit trail.
	Raw json.RawMessage `json:"-"`
}

// IsCaptured reports whether funds are settled, not merely authorized.
func (p *Payment) IsCaptured() bool {
	return p != nil && p.Status == StatusCaptured
}

type Refund struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaymentID string          `json:"payment_id"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"-"`
}

// APIError is a gateway rejection, classified by the SDK error type.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay %s: %s", e.Code, e.Description)
}

// CreateOrder creates a gateway order for the checkout widget.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", req.Amount)
	}
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}
	body, err := c.call(ctx, "create order", func() (map[string]interface{}, error) {
		return c.api.Order.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	var order Order
	if _, err := decode(body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayment returns the authoritative payment status.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}
	body, err := c.call(ctx, "fetch payment "+paymentID, func() (map[string]interface{}, error) {
		return c.api.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	var payment Payment
	if payment.Raw, err = decode(body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Refund returns amount minor units of a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amount int64) (*Refund, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	body, err := c.call(ctx, "refund "+paymentID, func() (map[string]interface{}, error) {
		return c.api.Payment.Refund(paymentID, int(amount), nil, nil)
	})
	if err != nil {
		return nil, err
	}
	var refund Refund
	if refund.Raw, err = decode(body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// VerifySignature checks the checkout callback signature:
// hex(HMAC-SHA256(order_id + "|" + payment_id, key_secret)).
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, strings.ToLower(signature), c.config.KeySecret)
}

// Signature computes the value the gateway sends back on checkout success.
func (c *Client) Signature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.config.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type callResult struct {
	body map[string]interface{}
	err  error
}

// call runs one SDK request under the client timeout. The SDK takes no
// context, so an abandoned request finishes on its own http timeout.
func (c *Client) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		body, err := fn()
		done <- callResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, op)
		}
		return nil, fmt.Errorf("razorpay %s: %w", op, ctx.Err())
	case res := <-done:
		if res.err == nil {
			return res.body, nil
		}
		if isTimeout(res.err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, op)
		}
		return nil, fmt.Errorf("razorpay %s: %w", op, classify(res.err))
	}
}

func classify(err error) error {
	var (
		bad *rzperrors.BadRequestError
		gw  *rzperrors.GatewayError
		srv *rzperrors.ServerError
	)
	switch {
	case errors.As(err, &bad):
		return &APIError{Code: "BAD_REQUEST_ERROR", Description: bad.Message}
	case errors.As(err, &gw):
		return &APIError{Code: "GATEWAY_ERROR", Description: gw.Message}
	case errors.As(err, &srv):
		return &APIError{Code: "SERVER_ERROR", Description: srv.Message}
	}
	return err
}

// decode maps an SDK entity onto out and returns it re-encoded for storage.
func decode(body map[string]interface{}, out interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode gateway entity: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("decode gateway entity: %w", err)
	}
	return raw, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
