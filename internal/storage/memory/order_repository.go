package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory хранит заказы в Store.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов поверх store.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	defer r.store.lockWrite(ctx)()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := r.store.orders[order.ID]; exists {
		return domain.Order{}, domain.ErrOrderAlreadyExists
	}
	for i := range order.Products {
		if order.Products[i].ID == "" {
			order.Products[i].ID = uuid.NewString()
		}
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	order.Products = slices.Clone(order.Products)
	r.store.orders[order.ID] = order

	return r.withCustomer(order), nil
}

// FindByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) FindByID(ctx context.Context, id string) (domain.Order, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.withCustomer(order), nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.CustomerID != customerID {
			continue
		}
		result = append(result, r.withCustomer(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// withCustomer подставляет снимок покупателя; вызывается под mu.
func (r *orderRepositoryInMemory) withCustomer(order domain.Order) domain.Order {
	if customer, ok := r.store.customers[order.CustomerID]; ok {
		order.Customer = customer
	}
	order.Products = slices.Clone(order.Products)
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
