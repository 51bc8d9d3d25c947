package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultListLimit задаёт размер выборки заказов покупателя по умолчанию.
const DefaultListLimit = 100

// ShowOrderService возвращает заказ по идентификатору.
type ShowOrderService struct {
	orders domain.OrderRepository
}

// NewShowOrderService создаёт ShowOrderService.
func NewShowOrderService(orders domain.OrderRepository) *ShowOrderService {
	return &ShowOrderService{orders: orders}
}

// Execute возвращает заказ или ErrOrderNotFound.
func (s *ShowOrderService) Execute(ctx context.Context, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

// ListCustomerOrdersService возвращает заказы покупателя от новых к старым.
type ListCustomerOrdersService struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
}

// NewListCustomerOrdersService создаёт ListCustomerOrdersService.
func NewListCustomerOrdersService(customers domain.CustomerRepository, orders domain.OrderRepository) *ListCustomerOrdersService {
	return &ListCustomerOrdersService{customers: customers, orders: orders}
}

// Execute возвращает до limit заказов; limit <= 0 заменяется на DefaultListLimit.
func (s *ListCustomerOrdersService) Execute(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	orders, err := s.orders.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
