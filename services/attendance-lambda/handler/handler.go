package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/response"
	"github.com/glitzfusion/fusionx/services/attendance-lambda/models"
	"github.com/glitzfusion/fusionx/services/attendance-lambda/usecase"
)

const (
	RouteValidate = "/api/admin/attendance/validate"
	RouteForEvent = "/api/admin/events/{id}/attendance"
)

type AttendanceHandler struct {
	useCase *usecase.AttendanceUseCase
}

func NewAttendanceHandler(uc *usecase.AttendanceUseCase) *AttendanceHandler {
	return &AttendanceHandler{useCase: uc}
}

func (h *AttendanceHandler) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST " + RouteValidate:
		return h.HandleValidate(ctx, request)
	case "GET " + RouteForEvent:
		return h.HandleList(ctx, request)
	}
	return response.Message(http.StatusNotFound, "route not found")
}

// HandleValidate handles POST /api/admin/attendance/validate.
// A denial is 409 and still carries the full result.
func (h *AttendanceHandler) HandleValidate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	var req models.ValidateRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}

	result, err := h.useCase.ValidateCode(ctx, req.Code, admin, models.RequestMeta{
		IPAddress: auth.ClientIP(request),
		UserAgent: auth.UserAgent(request),
	})
	if err != nil {
		return response.Error(err)
	}
	if !result.Success {
		body := apperrors.AlreadyUsed().ToJSON()
		body["data"] = result
		return response.Raw(http.StatusConflict, body)
	}
	return response.JSON(http.StatusOK, result)
}

// HandleList handles GET /api/admin/events/{id}/attendance
func (h *AttendanceHandler) HandleList(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := auth.RequireAdmin(request); err != nil {
		return response.Error(err)
	}
	list, err := h.useCase.ListAttendance(ctx, request.PathParameters["id"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, list)
}
