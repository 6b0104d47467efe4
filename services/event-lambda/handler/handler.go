package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/response"
	"github.com/glitzfusion/fusionx/services/event-lambda/models"
	"github.com/glitzfusion/fusionx/services/event-lambda/usecase"
)

// Route templates, shared with the local server.
const (
	RouteList        = "/api/events"
	RouteGet         = "/api/events/{id}"
	RouteQuote       = "/api/events/{id}/quote"
	RouteAdminCreate = "/api/admin/events"
	RouteAdminStatus = "/api/admin/events/{id}/status"
	RouteAdminSlot   = "/api/admin/events/{id}/capacity"
)

// EventHandler handles event-related requests
type EventHandler struct {
	useCase *usecase.EventUseCase
}

// NewEventHandler creates a new event handler
func NewEventHandler(uc *usecase.EventUseCase) *EventHandler {
	return &EventHandler{useCase: uc}
}

// Route dispatches on method and resource template.
func (h *EventHandler) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "GET " + RouteList:
		return h.HandleListEvents(ctx, request)
	case "GET " + RouteGet:
		return h.HandleGetEvent(ctx, request)
	case "GET " + RouteQuote:
		return h.HandleQuote(ctx, request)
	case "POST " + RouteAdminCreate:
		return h.HandleCreateEvent(ctx, request)
	case "PUT " + RouteAdminStatus:
		return h.HandleUpdateStatus(ctx, request)
	case "PUT " + RouteAdminSlot:
		return h.HandleAdjustCapacity(ctx, request)
	}
	return response.Message(http.StatusNotFound, "route not found")
}

// HandleListEvents handles GET /api/events
// Public callers only see published and sold out events; admins may pass
// ?status=all or any single status.
func (h *EventHandler) HandleListEvents(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status := request.QueryStringParameters["status"]
	if status != "" && !auth.IsAdmin(request) {
		status = ""
	}
	items, err := h.useCase.ListEvents(ctx, status)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, items)
}

// HandleGetEvent handles GET /api/events/{id}, id or slug. Drafts are
// visible to admins only.
func (h *EventHandler) HandleGetEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	event, err := h.useCase.GetEvent(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	if event.Status == models.StatusDraft && !auth.IsAdmin(request) {
		return response.Error(apperrors.NotFound("event"))
	}
	return response.JSON(http.StatusOK, event)
}

// HandleQuote handles GET /api/events/{id}/quote?category=&tickets=
func (h *EventHandler) HandleQuote(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	category := models.PricingCategory(request.QueryStringParameters["category"])
	if category == "" {
		return response.Error(apperrors.MissingField("category"))
	}
	tickets := 1
	if raw := request.QueryStringParameters["tickets"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return response.Error(apperrors.InvalidInput("tickets", "tickets must be a number"))
		}
		tickets = n
	}
	quote, err := h.useCase.QuotePrice(ctx, request.PathParameters["id"], category, tickets)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, quote)
}

// HandleCreateEvent handles POST /api/admin/events
func (h *EventHandler) HandleCreateEvent(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	var req models.CreateEventRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}
	event, err := h.useCase.CreateEvent(ctx, &req)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusCreated, event)
}

// HandleUpdateStatus handles PUT /api/admin/events/{id}/status
func (h *EventHandler) HandleUpdateStatus(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	var req models.UpdateStatusRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}
	event, err := h.useCase.UpdateEventStatus(ctx, request.PathParameters["id"], req.Status)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, event)
}

// HandleAdjustCapacity handles PUT /api/admin/events/{id}/capacity
func (h *EventHandler) HandleAdjustCapacity(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	var req models.AdjustCapacityRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}
	event, err := h.useCase.AdjustSlotCapacity(ctx, request.PathParameters["id"], &req)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, event)
}
