package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
	"filterpanel/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// requestContext attaches the logger and a request id to the request context.
// Missing ids are UUIDv4; chi's middleware.RequestID generates host-prefixed
// counters and does not echo the id in the response.
func requestContext(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := logging.WithLogger(r.Context(), logger)
			ctx = logging.WithAttrs(ctx, slog.String("component", "httpapi"))
			ctx = logging.WithRequestID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recoverer turns a handler panic into a JSON 500 and logs it with its stack.
// chi's middleware.Recoverer answers in plain text, which the API contract does not allow.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := errs.WithStack(fmt.Errorf("panic: %v", rec))
				logging.Error(r.Context(), "panic recovered", slog.Any("err", errs.Loggable(err)))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request and records its metrics under the chi route pattern.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(r.Method, route, status, elapsed)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("remote_addr", r.RemoteAddr),
		}
		switch {
		case status >= 500:
			logging.Error(r.Context(), "http_request", attrs...)
		case status >= 400:
			logging.Warn(r.Context(), "http_request", attrs...)
		default:
			logging.Info(r.Context(), "http_request", attrs...)
		}
	})
}
