package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerNotFound — покупатель с указанным идентификатором не существует.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrInvalidProductInRequest — в запросе есть товар, которого нет в каталоге.
	ErrInvalidProductInRequest = errors.New("there's an invalid item on your request")
	// ErrInsufficientStock — запрошено больше, чем есть на складе. Конкретика в InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidOrderRequest — запрос на создание заказа некорректен (пустой клиент, товары, количество).
	ErrInvalidOrderRequest = errors.New("invalid order request")
	// ErrStockConflict — остаток изменился между чтением и записью (конкурентный заказ).
	ErrStockConflict = errors.New("product stock changed concurrently")

	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// Ошибки инвариантов заказа.
	ErrCustomerRequired  = errors.New("customer_id is required")
	ErrProductsRequired  = errors.New("order must contain at least one product")
	ErrProductIDRequired = errors.New("product id is required")
	ErrItemQtyInvalid    = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid  = errors.New("item price must be non-negative")

	// Ошибки каталога.
	ErrInvalidCustomer        = errors.New("invalid customer")
	ErrCustomerNameRequired   = errors.New("customer name is required")
	ErrCustomerEmailInvalid   = errors.New("customer email is invalid")
	ErrCustomerEmailTaken     = errors.New("customer email is already used")
	ErrInvalidProduct         = errors.New("invalid product")
	ErrProductNameRequired    = errors.New("product name is required")
	ErrProductPriceInvalid    = errors.New("product price must be non-negative")
	ErrProductQuantityInvalid = errors.New("product quantity must be non-negative")
	ErrProductNameTaken       = errors.New("product name is already used")

	// ErrOrderAlreadyExists возвращается при повторной вставке заказа с тем же ID.
	ErrOrderAlreadyExists    = errors.New("order already exists")
	ErrCustomerAlreadyExists = errors.New("customer already exists")
	ErrProductAlreadyExists  = errors.New("product already exists")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError описывает товар, которого не хватает на складе.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s requested quantity (%d) is greater than your storage (%d)",
		e.ProductName, e.Requested, e.Available)
}

// Is позволяет сравнивать ошибку с ErrInsufficientStock через errors.Is.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsNotFound сообщает, что ошибка означает отсутствие сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound)
}
