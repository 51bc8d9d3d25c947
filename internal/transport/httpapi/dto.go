package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
)

type createOrderRequest struct {
	CustomerID string                 `json:"customer_id"`
	Products   []requestedProductBody `json:"products"`
}

type requestedProductBody struct {
	ID       string `json:"id"`
	Quantity int32  `json:"quantity"`
}

func (r createOrderRequest) toService() orders.CreateOrderRequest {
	products := make([]orders.RequestedProduct, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, orders.RequestedProduct{ID: p.ID, Quantity: p.Quantity})
	}
	return orders.CreateOrderRequest{CustomerID: r.CustomerID, Products: products}
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createProductRequest struct {
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type productResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceMinor int64     `json:"price_minor"`
	Quantity   int32     `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

type orderProductResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID            string                 `json:"id"`
	CustomerID    string                 `json:"customer_id"`
	Customer      customerResponse       `json:"customer"`
	Products      []orderProductResponse `json:"products"`
	TotalQuantity int64                  `json:"total_quantity"`
	CreatedAt     time.Time              `json:"created_at"`
}

type ordersResponse struct {
	Orders []orderResponse `json:"orders"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		PriceMinor: p.PriceMinor,
		Quantity:   p.Quantity,
		CreatedAt:  p.CreatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	products := make([]orderProductResponse, 0, len(o.Products))
	for _, p := range o.Products {
		products = append(products, orderProductResponse{
			ID:         p.ID,
			ProductID:  p.ProductID,
			PriceMinor: p.PriceMinor,
			Quantity:   p.Quantity,
		})
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Customer:      toCustomerResponse(o.Customer),
		Products:      products,
		TotalQuantity: o.TotalQuantity(),
		CreatedAt:     o.CreatedAt,
	}
}
