package auth

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/jwt"
	"github.com/glitzfusion/fusionx/common/logger"
)

func TestIdentifyStripsSpoofedHeaders(t *testing.T) {
	m := jwt.NewManager("secret", "glitzfusion", time.Hour)

	out := Identify(m, map[string]string{"x-user-role": "ADMIN", "X-User-Email": "mallory@example.com"})
	assert.Empty(t, Header(out, HeaderUserRole))
	assert.Empty(t, Header(out, HeaderUserEmail))

	token, err := m.GenerateToken("door@glitzfusion.in", "Door", jwt.RoleAdmin)
	require.NoError(t, err)
	out = Identify(m, map[string]string{"authorization": "Bearer " + token, "X-User-Role": "STAFF"})
	assert.Equal(t, "door@glitzfusion.in", out[HeaderUserEmail])
	assert.Equal(t, jwt.RoleAdmin, out[HeaderUserRole])

	out = Identify(m, map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Empty(t, out[HeaderUserEmail])
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		kind    apperrors.Kind
	}{
		{"admin", map[string]string{HeaderUserEmail: "door@glitzfusion.in", HeaderUserRole: jwt.RoleAdmin}, ""},
		{"anonymous", map[string]string{}, apperrors.KindUnauthorized},
		{"staff", map[string]string{HeaderUserEmail: "s@glitzfusion.in", HeaderUserRole: "STAFF"}, apperrors.KindUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := RequireAdmin(events.APIGatewayProxyRequest{Headers: tt.headers})
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, "door@glitzfusion.in", email)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestLambdaWrapperSetsContext(t *testing.T) {
	m := jwt.NewManager("secret", "glitzfusion", time.Hour)
	token, _ := m.GenerateToken("door@glitzfusion.in", "", jwt.RoleAdmin)

	var seen string
	h := Lambda(m, func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		seen = logger.AdminFrom(ctx)
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	})
	_, err := h(context.Background(), events.APIGatewayProxyRequest{Headers: map[string]string{"Authorization": "Bearer " + token}})
	require.NoError(t, err)
	assert.Equal(t, "door@glitzfusion.in", seen)
}

func TestClientIP(t *testing.T) {
	req := events.APIGatewayProxyRequest{Headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}}
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req = events.APIGatewayProxyRequest{}
	req.RequestContext.Identity.SourceIP = "198.51.100.2:53122"
	assert.Equal(t, "198.51.100.2", ClientIP(req))
}
