package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/response"
	"github.com/glitzfusion/fusionx/common/validator"
	"github.com/glitzfusion/fusionx/services/payment-lambda/models"
	"github.com/glitzfusion/fusionx/services/payment-lambda/usecase"
)

const (
	RouteOrders       = "/api/payments/orders"
	RouteVerify       = "/api/payments/verify"
	RouteRefund       = "/api/admin/payments/refund"
	RouteTransactions = "/api/admin/bookings/{id}/transactions"
)

// PaymentHandler handles payment requests
type PaymentHandler struct {
	useCase *usecase.PaymentUseCase
}

func NewPaymentHandler(uc *usecase.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{useCase: uc}
}

func (h *PaymentHandler) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST " + RouteOrders:
		return h.HandleCreateOrder(ctx, request)
	case "POST " + RouteVerify:
		return h.HandleVerify(ctx, request)
	case "POST " + RouteRefund:
		return h.HandleRefund(ctx, request)
	case "GET " + RouteTransactions:
		return h.HandleTransactions(ctx, request)
	}
	return response.Message(http.StatusNotFound, "route not found")
}

func requestMeta(request events.APIGatewayProxyRequest) models.RequestMeta {
	return models.RequestMeta{IPAddress: auth.ClientIP(request), UserAgent: auth.UserAgent(request)}
}

func decode(body string, v interface{}) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	return validator.Struct(v)
}

// HandleCreateOrder handles POST /api/payments/orders
func (h *PaymentHandler) HandleCreateOrder(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateOrderRequest
	if err := decode(request.Body, &req); err != nil {
		return response.Error(err)
	}
	order, err := h.useCase.CreatePaymentOrder(ctx, req.BookingID, requestMeta(request))
	if err != nil {
		return response.Error(err)
	}
	status := http.StatusCreated
	if order.Reused {
		status = http.StatusOK
	}
	return response.JSON(status, order)
}

// HandleVerify handles POST /api/payments/verify
func (h *PaymentHandler) HandleVerify(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.VerifyRequest
	if err := decode(request.Body, &req); err != nil {
		return response.Error(err)
	}
	result, err := h.useCase.VerifyPayment(ctx, &req, requestMeta(request))
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, result)
}

// HandleRefund handles POST /api/admin/payments/refund
func (h *PaymentHandler) HandleRefund(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	var req models.RefundRequest
	if err := decode(request.Body, &req); err != nil {
		return response.Error(err)
	}
	result, err := h.useCase.RefundPayment(ctx, req.BookingID, admin, requestMeta(request))
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, result)
}

// HandleTransactions handles GET /api/admin/bookings/{id}/transactions
func (h *PaymentHandler) HandleTransactions(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	logs, err := h.useCase.ListTransactions(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, logs)
}
