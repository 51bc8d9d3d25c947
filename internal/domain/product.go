package domain

import (
	"strings"
	"time"
)

// Product — товар каталога вместе с текущим остатком на складе.
type Product struct {
	ID   string
	Name string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, центы).
	PriceMinor int64
	// Quantity — доступный остаток (stock).
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет базовые инварианты товара.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrProductQuantityInvalid)
	}

	return errs
}

// StockUpdate — новое значение остатка товара.
// Expected хранит остаток, прочитанный при валидации заказа: запись применяется,
// только если остаток с тех пор не изменился.
type StockUpdate struct {
	ProductID string
	Quantity  int32
	Expected  int32
}
