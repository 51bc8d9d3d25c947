package domain

import "time"

// OrderProduct представляет одну позицию заказа — снимок цены и количества на момент создания.
type OrderProduct struct {
	ID        string
	ProductID string
	// PriceMinor — цена за единицу, скопированная из товара.
	PriceMinor int64
	// Quantity — заказанное количество (не остаток на складе).
	Quantity  int32
	CreatedAt time.Time
}

// Order агрегирует заказ покупателя и его позиции.
type Order struct {
	ID         string
	CustomerID string
	// Customer заполняется репозиторием при чтении и сервисом при создании.
	Customer  Customer
	Products  []OrderProduct
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalQuantity возвращает сумму количеств по всем позициям.
func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, p := range o.Products {
		total += int64(p.Quantity)
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Products) == 0 {
		errs = append(errs, ErrProductsRequired)
	}
	for _, p := range o.Products {
		if p.ProductID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if p.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if p.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
