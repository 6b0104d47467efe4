// Package auth carries the admin identity from a bearer token to handlers
// through trusted X-User-* headers.
package auth

import (
	"context"
	"net"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/jwt"
	"github.com/glitzfusion/fusionx/common/logger"
)

const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// LambdaHandler is the signature every service handler exposes.
type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Header looks a header up case-insensitively.
func Header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Identify strips any client supplied X-User-* headers and, when the
// Authorization header carries a valid token, sets them from its claims.
func Identify(m *jwt.Manager, headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		if strings.EqualFold(k, HeaderUserEmail) || strings.EqualFold(k, HeaderUserRole) {
			continue
		}
		out[k] = v
	}
	authz := Header(headers, "Authorization")
	if authz == "" || m == nil {
		return out
	}
	claims, err := m.FromAuthorization(authz)
	if err != nil {
		logger.Default().WithError(err).Debug("[AUTH] bearer token rejected")
		return out
	}
	out[HeaderUserEmail] = claims.Email
	out[HeaderUserRole] = claims.Role
	return out
}

// Lambda wraps a handler so direct lambda deployments authenticate the same
// way the local server does.
func Lambda(m *jwt.Manager, next LambdaHandler) LambdaHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		req.Headers = Identify(m, req.Headers)
		if email := Header(req.Headers, HeaderUserEmail); email != "" {
			ctx = logger.ContextWithAdmin(ctx, email)
		}
		if req.RequestContext.RequestID != "" {
			ctx = logger.ContextWithRequestID(ctx, req.RequestContext.RequestID)
		}
		return next(ctx, req)
	}
}

// RequireAdmin returns the admin's email or an auth error.
func RequireAdmin(req events.APIGatewayProxyRequest) (string, error) {
	email := Header(req.Headers, HeaderUserEmail)
	role := Header(req.Headers, HeaderUserRole)
	if email == "" {
		return "", apperrors.Unauthorized("authentication required")
	}
	if role != jwt.RoleAdmin {
		return "", apperrors.AccessDenied()
	}
	return email, nil
}

// IsAdmin reports whether the request carries an admin identity.
func IsAdmin(req events.APIGatewayProxyRequest) bool {
	_, err := RequireAdmin(req)
	return err == nil
}

// ClientIP prefers the first X-Forwarded-For hop, then the source address.
func ClientIP(req events.APIGatewayProxyRequest) string {
	if fwd := Header(req.Headers, "X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := Header(req.Headers, "X-Real-Ip"); ip != "" {
		return ip
	}
	src := req.RequestContext.Identity.SourceIP
	if host, _, err := net.SplitHostPort(src); err == nil {
		return host
	}
	return src
}

func UserAgent(req events.APIGatewayProxyRequest) string {
	if ua := Header(req.Headers, "User-Agent"); ua != "" {
		return ua
	}
	return req.RequestContext.Identity.UserAgent
}
