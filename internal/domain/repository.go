package domain

import "context"

// CustomerRepository описывает хранилище покупателей.
type CustomerRepository interface {
	// FindByID возвращает покупателя или ErrCustomerNotFound.
	FindByID(ctx context.Context, id string) (Customer, error)
	// FindByEmail возвращает покупателя по email или ErrCustomerNotFound.
	FindByEmail(ctx context.Context, email string) (Customer, error)
	// Create сохраняет покупателя. ErrCustomerEmailTaken, если email уже занят.
	Create(ctx context.Context, customer Customer) (Customer, error)
}

// ProductRepository описывает хранилище товаров и остатков.
type ProductRepository interface {
	// FindAllByID возвращает найденные товары; порядок не совпадает с ids, отсутствующие пропускаются.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)
	// UpdateQuantity применяет пачку новых остатков одним вызовом.
	// Если остаток хотя бы одного товара не равен Expected, возвращает ErrStockConflict.
	UpdateQuantity(ctx context.Context, updates []StockUpdate) error
	FindByID(ctx context.Context, id string) (Product, error)
	FindByName(ctx context.Context, name string) (Product, error)
	// Create сохраняет товар. ErrProductNameTaken, если имя уже занято.
	Create(ctx context.Context, product Product) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) (Order, error)
	// FindByID возвращает заказ или ErrOrderNotFound.
	FindByID(ctx context.Context, id string) (Order, error)
	// ListByCustomer возвращает заказы клиента от новых к старым; limit <= 0 — без ограничения.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
}

// Transactor выполняет fn в одной транзакции хранилища.
// Репозитории, вызванные с ctx, переданным в fn, работают внутри этой транзакции.
// Ошибка fn откатывает все записи.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
