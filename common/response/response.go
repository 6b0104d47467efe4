package response

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
)

// CORSHeaders are attached to every lambda response.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type,Authorization",
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON wraps data in a success envelope.
func JSON(statusCode int, data interface{}) (events.APIGatewayProxyResponse, error) {
	return Raw(statusCode, APIResponse{Success: true, Data: data})
}

// Message returns a message-only envelope.
func Message(statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	return Raw(statusCode, APIResponse{Success: statusCode < 400, Message: message})
}

// Raw serializes body without an envelope.
func Raw(statusCode int, body interface{}) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Default().WithError(err).Error("failed to serialize response")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers(),
			Body:       `{"success":false,"message":"failed to serialize response"}`,
		}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers(),
		Body:       string(data),
	}, nil
}

// Error renders any error with the status of its AppError.
// Internal causes are logged, never echoed.
func Error(err error) (events.APIGatewayProxyResponse, error) {
	appErr := apperrors.ToAppError(err)
	if appErr.Kind() == apperrors.KindInternal {
		logger.Default().WithError(err).Error("internal error: %s", appErr.Message)
	}
	return Raw(appErr.HTTPStatus, appErr.ToJSON())
}

func headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json;charset=UTF-8"}
	for k, v := range CORSHeaders {
		h[k] = v
	}
	return h
}
