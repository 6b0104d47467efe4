package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/response"
	"github.com/glitzfusion/fusionx/services/content-lambda/models"
	"github.com/glitzfusion/fusionx/services/content-lambda/usecase"
)

const (
	RouteSection   = "/api/content/{section}"
	RouteItem      = "/api/content/{section}/{key}"
	RouteAdminItem = "/api/admin/content/{section}/{key}"
	RouteMedia     = "/api/admin/media"
	RouteMediaItem = "/api/admin/media/{key}"
)

type ContentHandler struct {
	useCase *usecase.ContentUseCase
}

func NewContentHandler(uc *usecase.ContentUseCase) *ContentHandler {
	return &ContentHandler{useCase: uc}
}

func (h *ContentHandler) Route(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "GET " + RouteSection:
		return h.HandleList(ctx, request)
	case "GET " + RouteItem:
		return h.HandleGet(ctx, request)
	case "PUT " + RouteAdminItem:
		return h.HandlePut(ctx, request)
	case "DELETE " + RouteAdminItem:
		return h.HandleDelete(ctx, request)
	case "POST " + RouteMedia:
		return h.HandleUpload(ctx, request)
	case "DELETE " + RouteMedia, "DELETE " + RouteMediaItem:
		return h.HandleDeleteMedia(ctx, request)
	}
	return response.Message(http.StatusNotFound, "route not found")
}

// HandleList handles GET /api/content/{section}
func (h *ContentHandler) HandleList(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	docs, err := h.useCase.List(ctx, request.PathParameters["section"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, docs)
}

// HandleGet handles GET /api/content/{section}/{key}
func (h *ContentHandler) HandleGet(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	doc, err := h.useCase.Get(ctx, request.PathParameters["section"], request.PathParameters["key"])
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, doc)
}

// HandlePut handles PUT /api/admin/content/{section}/{key}. The body is
// stored as is.
func (h *ContentHandler) HandlePut(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	doc, err := h.useCase.Put(ctx, request.PathParameters["section"], request.PathParameters["key"],
		json.RawMessage(request.Body), admin)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusOK, doc)
}

func (h *ContentHandler) HandleDelete(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	if err := h.useCase.Delete(ctx, request.PathParameters["section"], request.PathParameters["key"], admin); err != nil {
		return response.Error(err)
	}
	return response.Message(http.StatusOK, "content deleted")
}

// HandleUpload handles POST /api/admin/media
func (h *ContentHandler) HandleUpload(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	var req models.UploadMediaRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(apperrors.ValidationError("invalid request body"))
	}
	obj, err := h.useCase.UploadMedia(ctx, &req, admin)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(http.StatusCreated, obj)
}

// HandleDeleteMedia accepts the key as a path segment or, for keys with
// slashes, as ?key=.
func (h *ContentHandler) HandleDeleteMedia(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	admin, err := auth.RequireAdmin(request)
	if err != nil {
		return response.Error(err)
	}
	key := request.QueryStringParameters["key"]
	if key == "" {
		key, _ = url.PathUnescape(request.PathParameters["key"])
	}
	if err := h.useCase.DeleteMedia(ctx, key, request.QueryStringParameters["mimeType"], admin); err != nil {
		return response.Error(err)
	}
	return response.Message(http.StatusOK, "media deleted")
}
