// Package httpapi реализует HTTP API магазина на chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
)

// RouterOptions содержит необязательные зависимости роутера.
type RouterOptions struct {
	Logger      *log.Entry
	Metrics     *metrics.HTTPMetrics
	Idempotency *idempotency.Guard
	CORSOrigins []string
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogging(logger, opts.Metrics))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", HeaderIdempotencyKey, middleware.RequestIDHeader},
			ExposedHeaders: []string{HeaderIdempotentReplay},
			MaxAge:         300,
		}).Handler)
	}

	r.With(idempotent(opts.Idempotency, logger)).Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/customers/{id}/orders", h.ListCustomerOrders)
	r.Post("/customers", h.CreateCustomer)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{id}", h.GetProduct)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
