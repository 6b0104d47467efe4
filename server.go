package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/glitzfusion/fusionx/common/auth"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/jwt"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/ratelimit"
	"github.com/glitzfusion/fusionx/common/response"
)

// route binds one method and pattern to a lambda handler. Limited routes
// share the per-client limiter.
type route struct {
	method  string
	pattern string
	handler auth.LambdaHandler
	limited bool
}

func newRouter(log *logger.Logger, mgr *jwt.Manager, limiter *ratelimit.Limiter, routes []route) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		resp, _ := response.JSON(http.StatusOK, map[string]string{"status": "ok"})
		writeResponse(w, resp)
	})

	for _, rt := range routes {
		h := lambdaHTTP(auth.Lambda(mgr, rt.handler), log)
		if rt.limited && limiter != nil {
			h = rateLimit(limiter, h)
		}
		r.Method(rt.method, rt.pattern, h)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		resp, _ := response.Message(http.StatusNotFound, "route not found")
		writeResponse(w, resp)
	})
	return r
}

// lambdaHTTP serves an http request through a lambda proxy handler.
func lambdaHTTP(handler auth.LambdaHandler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := adaptRequest(r)
		if err != nil {
			resp, _ := response.Error(apperrors.ValidationError("unreadable request body"))
			writeResponse(w, resp)
			return
		}
		resp, err := handler(r.Context(), req)
		if err != nil {
			log.WithContext(r.Context()).WithError(err).Error("handler returned error for %s %s", req.HTTPMethod, req.Resource)
			resp, _ = response.Error(err)
		}
		writeResponse(w, resp)
	})
}

// adaptRequest converts an http request into the API Gateway shape. The
// matched chi pattern becomes Resource so handlers switch on the same
// strings in both deployments.
func adaptRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}
	defer r.Body.Close()

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	}
	req.RequestContext.RequestID = chimiddleware.GetReqID(r.Context())
	req.RequestContext.Identity.SourceIP = r.RemoteAddr
	req.RequestContext.Identity.UserAgent = r.UserAgent()

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		req.Resource = rctx.RoutePattern()
		params := make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			if key == "*" {
				continue
			}
			params[key] = rctx.URLParams.Values[i]
		}
		req.PathParameters = params
	}
	return req, nil
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for key, value := range response.CORSHeaders {
		w.Header().Set(key, value)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, value := range response.CORSHeaders {
			w.Header().Set(key, value)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimit(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(remoteHost(r)) {
			resp, _ := response.Error(apperrors.RateLimited())
			writeResponse(w, resp)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// remoteHost drops the port so one client keeps one bucket across
// connections.
func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogRequest(logger.RequestLog{
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    status,
				Duration:  time.Since(start),
				ClientIP:  remoteHost(r),
				UserAgent: r.UserAgent(),
				RequestID: chimiddleware.GetReqID(r.Context()),
			})
		})
	}
}

// pruneLoop drops idle limiter buckets until ctx is done.
func pruneLoop(ctx context.Context, limiter *ratelimit.Limiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}
