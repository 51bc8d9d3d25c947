package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

const productColumns = `id, name, price_minor, quantity, created_at, updated_at`

func (r *productRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// UpdateQuantity обновляет остатки условно: строка меняется, только если quantity = Expected.
// Вне транзакции обновления применяются в собственной транзакции.
func (r *productRepository) UpdateQuantity(ctx context.Context, updates []domain.StockUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.store.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, cancel := withTimeout(ctx)
		defer cancel()

		now := time.Now().UTC()
		for _, u := range updates {
			res, err := r.store.conn(ctx).ExecContext(ctx, `
				UPDATE products
				SET quantity = $1,
				    updated_at = $2
				WHERE id = $3
				  AND quantity = $4
			`, u.Quantity, now, u.ProductID, u.Expected)
			if err != nil {
				return fmt.Errorf("update product %s quantity: %w", u.ProductID, err)
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if affected == 0 {
				if _, err := r.FindByID(ctx, u.ProductID); err != nil {
					return err
				}
				return domain.ErrStockConflict
			}
		}
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return scanProduct(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *productRepository) FindByName(ctx context.Context, name string) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return scanProduct(r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE name = $1`, name))
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO products (id, name, price_minor, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), COALESCE($6, NOW()))
		RETURNING created_at, updated_at
	`,
		product.ID, product.Name, product.PriceMinor, product.Quantity,
		nullTime(product.CreatedAt), nullTime(product.UpdatedAt),
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return domain.Product{}, productInsertError(err)
	}

	return product, nil
}

func scanProduct(row *sql.Row) (domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// nullTime превращает нулевое время в NULL, чтобы сработал DEFAULT NOW().
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func productInsertError(err error) error {
	if mapped := mapUniqueViolation(err, map[string]error{
		constraintProductsName: domain.ErrProductNameTaken,
		constraintProductsPK:   domain.ErrProductAlreadyExists,
	}); mapped != nil {
		return mapped
	}
	return fmt.Errorf("insert product: %w", err)
}

var _ domain.ProductRepository = (*productRepository)(nil)
