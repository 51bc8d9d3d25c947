package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
)

const maxBodyBytes = 1 << 20

// OrderCreator создаёт заказ.
type OrderCreator interface {
	Execute(ctx context.Context, req orders.CreateOrderRequest) (domain.Order, error)
}

// OrderFinder возвращает заказ по идентификатору.
type OrderFinder interface {
	Execute(ctx context.Context, orderID string) (domain.Order, error)
}

// CustomerOrdersLister возвращает заказы покупателя.
type CustomerOrdersLister interface {
	Execute(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

// Catalog управляет покупателями и товарами.
type Catalog interface {
	CreateCustomer(ctx context.Context, name, email string) (domain.Customer, error)
	CreateProduct(ctx context.Context, name string, priceMinor int64, quantity int32) (domain.Product, error)
	ShowProduct(ctx context.Context, id string) (domain.Product, error)
}

// Handler обслуживает HTTP API магазина.
type Handler struct {
	createOrder    OrderCreator
	showOrder      OrderFinder
	customerOrders CustomerOrdersLister
	catalog        Catalog
	logger         *log.Entry
}

// NewHandler создаёт обработчики HTTP API.
func NewHandler(
	createOrder OrderCreator,
	showOrder OrderFinder,
	customerOrders CustomerOrdersLister,
	catalog Catalog,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Handler{
		createOrder:    createOrder,
		showOrder:      showOrder,
		customerOrders: customerOrders,
		catalog:        catalog,
		logger:         logger,
	}
}

// CreateOrder обрабатывает POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.createOrder.Execute(r.Context(), req.toService())
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder обрабатывает GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.showOrder.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListCustomerOrders обрабатывает GET /customers/{id}/orders?limit=N.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	list, err := h.customerOrders.Execute(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	resp := ordersResponse{Orders: make([]orderResponse, 0, len(list))}
	for _, o := range list {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCustomer обрабатывает POST /customers.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.catalog.CreateCustomer(r.Context(), req.Name, req.Email)
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// CreateProduct обрабатывает POST /products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.Name, req.PriceMinor, req.Quantity)
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// GetProduct обрабатывает GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.ShowProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// decode читает JSON-тело; при ошибке сам пишет 400 и возвращает false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeInvalidJSON, "request body is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeInvalidJSON, err.Error())
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "request body must contain a single JSON object")
		return false
	}
	return true
}

func (h *Handler) requestLogger(r *http.Request) *log.Entry {
	return h.logger.WithFields(log.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": requestID(r),
	})
}
