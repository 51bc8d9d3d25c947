package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create вставляет заказ и позиции. Вне транзакции запись выполняется в собственной.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	order.Products = slices.Clone(order.Products)

	err := r.store.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, cancel := withTimeout(ctx)
		defer cancel()

		conn := r.store.conn(ctx)
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`, order.ID, order.CustomerID, order.CreatedAt, order.UpdatedAt); err != nil {
			if _, ok := uniqueViolation(err); ok {
				return domain.ErrOrderAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Products {
			item := &order.Products[i]
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			if item.CreatedAt.IsZero() {
				item.CreatedAt = order.CreatedAt
			}
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO order_products (id, order_id, product_id, price_minor, quantity, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, item.ID, order.ID, item.ProductID, item.PriceMinor, item.Quantity, item.CreatedAt); err != nil {
				return fmt.Errorf("insert order product: %w", err)
			}
		}

		customer, err := NewCustomerRepository(r.store).FindByID(ctx, order.CustomerID)
		if err != nil {
			return err
		}
		order.Customer = customer
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	conn := r.store.conn(ctx)

	var order domain.Order
	err := conn.QueryRowContext(ctx, `
		SELECT o.id, o.customer_id, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, id).Scan(
		&order.ID, &order.CustomerID, &order.CreatedAt, &order.UpdatedAt,
		&order.Customer.ID, &order.Customer.Name, &order.Customer.Email,
		&order.Customer.CreatedAt, &order.Customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadOrderProducts(ctx, conn, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Products = items

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	conn := r.store.conn(ctx)

	query := `
		SELECT o.id, o.customer_id, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.customer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = conn.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = conn.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.CreatedAt, &order.UpdatedAt,
			&order.Customer.ID, &order.Customer.Name, &order.Customer.Email,
			&order.Customer.CreatedAt, &order.Customer.UpdatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	// Позиции читаются после закрытия курсора: внутри транзакции он занимает соединение.
	_ = rows.Close()

	for i := range orders {
		items, err := loadOrderProducts(ctx, conn, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Products = items
	}

	return orders, nil
}

func loadOrderProducts(ctx context.Context, conn executor, orderID string) ([]domain.OrderProduct, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, product_id, price_minor, quantity, created_at
		FROM order_products
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderProduct, 0)
	for rows.Next() {
		var item domain.OrderProduct
		if err := rows.Scan(&item.ID, &item.ProductID, &item.PriceMinor, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order product: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order products: %w", err)
	}

	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
