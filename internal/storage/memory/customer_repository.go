package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepositoryInMemory struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory репозиторий покупателей поверх store.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

func (r *customerRepositoryInMemory) FindByID(ctx context.Context, id string) (domain.Customer, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	customer, ok := r.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, customer := range r.store.customers {
		if strings.EqualFold(customer.Email, email) {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// Create сохраняет покупателя, проверяя уникальность email.
func (r *customerRepositoryInMemory) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	defer r.store.lockWrite(ctx)()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return domain.Customer{}, domain.ErrCustomerEmailTaken
		}
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	r.store.customers[customer.ID] = customer
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
