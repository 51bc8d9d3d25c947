package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepository struct {
	store *Store
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

const customerColumns = `id, name, email, created_at, updated_at`

func (r *customerRepository) FindByID(ctx context.Context, id string) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.scanOne(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.scanOne(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO customers (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, NOW()), COALESCE($5, NOW()))
		RETURNING created_at, updated_at
	`,
		customer.ID, customer.Name, customer.Email,
		nullTime(customer.CreatedAt), nullTime(customer.UpdatedAt),
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return domain.Customer{}, customerInsertError(err)
	}

	return customer, nil
}

func (r *customerRepository) scanOne(row *sql.Row) (domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

func customerInsertError(err error) error {
	if mapped := mapUniqueViolation(err, map[string]error{
		constraintCustomersEmail: domain.ErrCustomerEmailTaken,
		constraintCustomersPK:    domain.ErrCustomerAlreadyExists,
	}); mapped != nil {
		return mapped
	}
	return fmt.Errorf("insert customer: %w", err)
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
