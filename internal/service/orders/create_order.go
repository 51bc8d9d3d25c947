package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// RequestedProduct задаёт одну позицию запроса: идентификатор товара и желаемое количество.
type RequestedProduct struct {
	ID       string
	Quantity int32
}

// CreateOrderRequest содержит входные данные операции создания заказа.
// Дубли ID товаров не отклоняются заранее.
type CreateOrderRequest struct {
	CustomerID string
	Products   []RequestedProduct
}

// Validate проверяет форму списка товаров. Покупатель проверяется раньше, через
// CustomerRepository, поэтому пустой customer_id даёт ErrCustomerNotFound.
func (r CreateOrderRequest) Validate() error {
	if len(r.Products) == 0 {
		return fmt.Errorf("%w: products must not be empty", domain.ErrInvalidOrderRequest)
	}
	for i, p := range r.Products {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: products[%d].id is required", domain.ErrInvalidOrderRequest, i)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("%w: products[%d].quantity must be greater than zero", domain.ErrInvalidOrderRequest, i)
		}
	}
	return nil
}

// CreateOrderService проверяет покупателя и остатки, списывает товар и сохраняет заказ.
// Все чтения и записи выполняются в одной транзакции Transactor.
type CreateOrderService struct {
	customers domain.CustomerRepository
	products  domain.ProductRepository
	orders    domain.OrderRepository
	tx        domain.Transactor
	outbox    domain.OutboxRepository
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	now       func() time.Time
}

// Option настраивает CreateOrderService.
type Option func(*CreateOrderService)

// WithOutbox включает запись события order.created в transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *CreateOrderService) {
		s.outbox = outbox
	}
}

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *CreateOrderService) {
		s.metrics = m
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *CreateOrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *CreateOrderService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCreateOrderService создаёт сервис. Если tx == nil, шаги выполняются без транзакции.
func NewCreateOrderService(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	tx domain.Transactor,
	opts ...Option,
) *CreateOrderService {
	s := &CreateOrderService{
		customers: customers,
		products:  products,
		orders:    orders,
		tx:        tx,
		logger:    log.WithField("component", "create-order"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = noopTransactor{}
	}
	return s
}

// Execute создаёт заказ. Ошибки бизнес-правил в порядке приоритета:
// ErrCustomerNotFound, ErrInvalidProductInRequest, *InsufficientStockError.
func (s *CreateOrderService) Execute(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordStarted()
		defer func() { s.metrics.RecordFinished(time.Since(start)) }()
	}

	logger := s.logger.WithField("customer_id", req.CustomerID)

	var created domain.Order
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.create(ctx, req)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		s.reject(logger, err)
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCreated(created.TotalQuantity())
	}
	logger.WithFields(log.Fields{
		"order_id": created.ID,
		"items":    len(created.Products),
	}).Info("order created")

	return created, nil
}

func (s *CreateOrderService) create(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	customer, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Order{}, domain.ErrCustomerNotFound
		}
		return domain.Order{}, fmt.Errorf("find customer: %w", err)
	}
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	ids := make([]string, 0, len(req.Products))
	for _, p := range req.Products {
		ids = append(ids, p.ID)
	}

	found, err := s.products.FindAllByID(ctx, ids)
	if err != nil {
		return domain.Order{}, fmt.Errorf("find products: %w", err)
	}
	if len(found) != len(req.Products) {
		return domain.Order{}, domain.ErrInvalidProductInRequest
	}

	// Для дублей берётся первая позиция запроса с этим ID.
	requested := make(map[string]int32, len(req.Products))
	for _, p := range req.Products {
		if _, ok := requested[p.ID]; !ok {
			requested[p.ID] = p.Quantity
		}
	}
	resolved := make(map[string]struct{}, len(found))
	for _, product := range found {
		resolved[product.ID] = struct{}{}
	}
	for id := range requested {
		if _, ok := resolved[id]; !ok {
			return domain.Order{}, domain.ErrInvalidProductInRequest
		}
	}

	now := s.now()
	updates := make([]domain.StockUpdate, 0, len(found))
	items := make([]domain.OrderProduct, 0, len(found))
	for _, product := range found {
		qty, ok := requested[product.ID]
		if !ok {
			items = append(items, domain.OrderProduct{
				ID:         uuid.NewString(),
				ProductID:  product.ID,
				PriceMinor: product.PriceMinor,
				Quantity:   product.Quantity,
				CreatedAt:  now,
			})
			continue
		}
		if product.Quantity < qty {
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   qty,
				Available:   product.Quantity,
			}
		}

		updates = append(updates, domain.StockUpdate{
			ProductID: product.ID,
			Quantity:  product.Quantity - qty,
			Expected:  product.Quantity,
		})
		items = append(items, domain.OrderProduct{
			ID:         uuid.NewString(),
			ProductID:  product.ID,
			PriceMinor: product.PriceMinor,
			Quantity:   qty,
			CreatedAt:  now,
		})
	}

	draft := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Customer:   customer,
		Products:   items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errs := draft.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrInvalidOrderRequest, errors.Join(errs...))
	}

	if err := s.products.UpdateQuantity(ctx, updates); err != nil {
		return domain.Order{}, fmt.Errorf("update stock: %w", err)
	}

	order, err := s.orders.Create(ctx, draft)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	if order.Customer.ID == "" {
		order.Customer = customer
	}

	if s.outbox != nil {
		if err := s.enqueueCreated(ctx, order); err != nil {
			return domain.Order{}, err
		}
	}

	return order, nil
}

func (s *CreateOrderService) enqueueCreated(ctx context.Context, order domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderCreatedPayload(order))
	if err != nil {
		return fmt.Errorf("marshal order.created payload: %w", err)
	}

	_, err = s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventTypeOrderCreated,
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("enqueue order.created: %w", err)
	}
	return nil
}

func (s *CreateOrderService) reject(logger *log.Entry, err error) {
	reason := rejectReason(err)
	if s.metrics != nil {
		s.metrics.RecordRejected(reason)
	}

	entry := logger.WithError(err).WithField("reason", reason)
	if reason == metrics.ReasonInternal {
		entry.Error("order creation failed")
		return
	}
	entry.Warn("order rejected")
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidOrderRequest):
		return metrics.ReasonInvalidRequest
	case errors.Is(err, domain.ErrCustomerNotFound):
		return metrics.ReasonCustomerNotFound
	case errors.Is(err, domain.ErrInvalidProductInRequest):
		return metrics.ReasonInvalidProduct
	case errors.Is(err, domain.ErrInsufficientStock):
		return metrics.ReasonInsufficientStock
	case errors.Is(err, domain.ErrStockConflict):
		return metrics.ReasonStockConflict
	default:
		return metrics.ReasonInternal
	}
}

// noopTransactor выполняет fn без транзакции.
type noopTransactor struct{}

func (noopTransactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
