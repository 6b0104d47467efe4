package usecase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glitzfusion/fusionx/common/razorpay"
)

// fakeGateway serves the three Razorpay endpoints the orchestrator calls.
type fakeGateway struct {
	mu       sync.Mutex
	orders   int
	refunds  int
	payments map[string]map[string]interface{}
	slow     map[string]time.Duration
	server   *httptest.Server
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{
		payments: map[string]map[string]interface{}{},
		slow:     map[string]time.Duration{},
	}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) client(timeout time.Duration) *razorpay.Client {
	return razorpay.NewClient(razorpay.Config{
		KeyID:     "rzp_test_key",
		KeySecret: "test_secret",
		BaseURL:   g.server.URL,
		Timeout:   timeout,
	})
}

// capture registers a gateway payment against an order.
func (g *fakeGateway) capture(paymentID, orderID, status string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[paymentID] = map[string]interface{}{
		"id": paymentID, "entity": "payment", "amount": amount, "currency": "INR",
		"status": status, "order_id": orderID, "method": "upi", "captured": status == razorpay.StatusCaptured,
	}
}

func (g *fakeGateway) counts() (orders, refunds int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders, g.refunds
}

func (g *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/orders":
		var req razorpay.OrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		g.mu.Lock()
		g.orders++
		id := fmt.Sprintf("order_%d", g.orders)
		g.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": id, "entity": "order", "amount": req.Amount, "currency": req.Currency,
			"receipt": req.Receipt, "status": "created",
		})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refund"):
		paymentID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/payments/"), "/refund")
		g.mu.Lock()
		g.refunds++
		id := fmt.Sprintf("rfnd_%d", g.refunds)
		g.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": id, "entity": "refund", "payment_id": paymentID, "status": "processed",
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payments/"):
		paymentID := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		g.mu.Lock()
		payment, ok := g.payments[paymentID]
		delay := g.slow[paymentID]
		g.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(payment)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
