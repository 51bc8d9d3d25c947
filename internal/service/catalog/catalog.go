// Package catalog содержит операции над покупателями и товарами.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service создаёт покупателей и товары и отдаёт карточку товара.
type Service struct {
	customers domain.CustomerRepository
	products  domain.ProductRepository
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис каталога.
func NewService(customers domain.CustomerRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{
		customers: customers,
		products:  products,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateCustomer регистрирует покупателя. Email должен быть уникальным.
func (s *Service) CreateCustomer(ctx context.Context, name, email string) (domain.Customer, error) {
	now := s.now()
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, fmt.Errorf("%w: %w", domain.ErrInvalidCustomer, errors.Join(errs...))
	}

	if _, err := s.customers.FindByEmail(ctx, customer.Email); err == nil {
		return domain.Customer{}, domain.ErrCustomerEmailTaken
	} else if !errors.Is(err, domain.ErrCustomerNotFound) {
		return domain.Customer{}, fmt.Errorf("find customer by email: %w", err)
	}

	created, err := s.customers.Create(ctx, customer)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerEmailTaken) {
			return domain.Customer{}, domain.ErrCustomerEmailTaken
		}
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	return created, nil
}

// CreateProduct добавляет товар в каталог. Имя должно быть уникальным.
func (s *Service) CreateProduct(ctx context.Context, name string, priceMinor int64, quantity int32) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		PriceMinor: priceMinor,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, fmt.Errorf("%w: %w", domain.ErrInvalidProduct, errors.Join(errs...))
	}

	if _, err := s.products.FindByName(ctx, product.Name); err == nil {
		return domain.Product{}, domain.ErrProductNameTaken
	} else if !errors.Is(err, domain.ErrProductNotFound) {
		return domain.Product{}, fmt.Errorf("find product by name: %w", err)
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		if errors.Is(err, domain.ErrProductNameTaken) {
			return domain.Product{}, domain.ErrProductNameTaken
		}
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"quantity":   created.Quantity,
	}).Info("product created")
	return created, nil
}

// ShowProduct возвращает товар или ErrProductNotFound.
func (s *Service) ShowProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}
