package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
)

const (
	// HeaderIdempotencyKey передаёт ключ идемпотентности.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay выставляется, если ответ взят из сохранённой записи.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// routePattern возвращает шаблон маршрута chi ("/orders/{id}") или "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// requestLogging пишет access-лог через logrus и наблюдает HTTP-метрики.
func requestLogging(logger *log.Entry, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			route := routePattern(r)

			if m != nil {
				m.Observe(r.Method, route, status, duration)
			}

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"route":       route,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": duration.Milliseconds(),
				"request_id":  requestID(r),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("http request")
				return
			}
			entry.Info("http request")
		})
	}
}

// idempotent делает обработчик идемпотентным по заголовку Idempotency-Key.
// Без заголовка запрос проходит как есть.
func idempotent(guard *idempotency.Guard, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if guard == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				writeError(w, http.StatusBadRequest, codeIdempotencyKeyInvalid, "idempotency key is too long")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, http.StatusRequestEntityTooLarge, codeInvalidJSON, "request body is too large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			reqLogger := logger.WithFields(log.Fields{
				"idempotency_key": key,
				"request_id":      requestID(r),
			})

			hash := idempotency.RequestHash(r.Method, r.URL.Path, body)
			replay, err := guard.Begin(r.Context(), key, hash)
			switch {
			case err == nil && replay != nil:
				reqLogger.Debug("replaying stored response")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HeaderIdempotentReplay, "true")
				w.WriteHeader(replay.HTTPStatus)
				_, _ = w.Write(replay.Body)
				return
			case err != nil:
				writeDomainError(w, reqLogger, err)
				return
			}

			var captured bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// Ответ сохраняется даже если клиент уже отключился.
			guard.Finish(context.WithoutCancel(r.Context()), key, status, captured.Bytes())
		})
	}
}
