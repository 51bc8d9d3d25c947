package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий товаров поверх store.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// FindAllByID возвращает существующие товары без дублей; отсутствующие ID пропускаются.
func (r *productRepositoryInMemory) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if product, ok := r.store.products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// UpdateQuantity применяет все обновления или ни одного.
func (r *productRepositoryInMemory) UpdateQuantity(ctx context.Context, updates []domain.StockUpdate) error {
	defer r.store.lockWrite(ctx)()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range updates {
		product, ok := r.store.products[u.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if product.Quantity != u.Expected {
			return domain.ErrStockConflict
		}
	}

	now := time.Now().UTC()
	for _, u := range updates {
		product := r.store.products[u.ProductID]
		product.Quantity = u.Quantity
		product.UpdatedAt = now
		r.store.products[u.ProductID] = product
	}
	return nil
}

func (r *productRepositoryInMemory) FindByID(ctx context.Context, id string) (domain.Product, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepositoryInMemory) FindByName(ctx context.Context, name string) (domain.Product, error) {
	defer r.store.lockRead(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, product := range r.store.products {
		if product.Name == name {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// Create сохраняет товар, проверяя уникальность имени.
func (r *productRepositoryInMemory) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	defer r.store.lockWrite(ctx)()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.products {
		if existing.Name == product.Name {
			return domain.Product{}, domain.ErrProductNameTaken
		}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	r.store.products[product.ID] = product
	return product, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
