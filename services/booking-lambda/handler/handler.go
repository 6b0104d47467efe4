package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/response"
	"github.com/glitzfusion/fusionx/services/booking-lambda/models"
	"github.com/glitzfusion/fusionx/services/booking-lambda/usecase"
)

const (
	RouteCreate     = "/api/bookings"
	RouteGet        = "/api/bookings/{id}"
	RouteGetByCode  = "/api/bookings/code/{code}"
	RouteEventAdmin = "/api/admin/events/{id}/bookings"
)

// BookingHandler handles booking requests
type BookingHandler struct {
	useCase *usecase.BookingUseCase
}

func NewBookingHandler(uc *usecase.BookingUseCase) *BookingHandler {
	return &BookingHandler{useCase: uc}
}

// Route dispatches on method and resource template.
func (h *BookingHandler) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST " + RouteCreate:
		return h.HandleCreateBooking(ctx, request)
	case "GET " + RouteGet:
		return h.HandleGetBooking(ctx, request)
	case "GET " + RouteGetByCode:
		return h.HandleGetByCode(ctx, request)
	case "GET " + RouteEventAdmin:
		return h.HandleListForEvent(ctx, request)
	}
	return response.Message(http.StatusNotFound, "route not found")
}

// HandleCreateBooking handles POST /api/bookings
func (h *BookingHandler) HandleCreateBooking(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateBookingRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}
	confirmation, err := h.useCase.CreateBooking(ctx, &req)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusCreated, confirmation)
}

// HandleGetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) HandleGetBooking(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	b, err := h.useCase.GetBooking(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, b)
}

// HandleGetByCode handles GET /api/bookings/code/{code}
func (h *BookingHandler) HandleGetByCode(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	b, err := h.useCase.GetBookingByCode(ctx, request.PathParameters["code"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, b)
}

// HandleListForEvent handles GET /api/admin/events/{id}/bookings
func (h *BookingHandler) HandleListForEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	list, err := h.useCase.ListBookings(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, list)
}
