package domain

import (
	"encoding/json"
	"time"
)

// OrderCreatedPayload — полезная нагрузка события order.created в outbox.
type OrderCreatedPayload struct {
	OrderID       string                    `json:"order_id"`
	CustomerID    string                    `json:"customer_id"`
	Products      []OrderCreatedPayloadItem `json:"products"`
	TotalQuantity int64                     `json:"total_quantity"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// OrderCreatedPayloadItem описывает позицию заказа в событии.
type OrderCreatedPayloadItem struct {
	ProductID  string `json:"product_id"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

// NewOrderCreatedPayload строит payload события по созданному заказу.
func NewOrderCreatedPayload(order Order) OrderCreatedPayload {
	items := make([]OrderCreatedPayloadItem, 0, len(order.Products))
	for _, p := range order.Products {
		items = append(items, OrderCreatedPayloadItem{
			ProductID:  p.ProductID,
			PriceMinor: p.PriceMinor,
			Quantity:   p.Quantity,
		})
	}
	return OrderCreatedPayload{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Products:      items,
		TotalQuantity: order.TotalQuantity(),
		CreatedAt:     order.CreatedAt,
	}
}

// DeadLetter — payload события, ушедшего в DLQ после исчерпания попыток.
// Payload содержит исходное событие, если оно было валидным JSON.
type DeadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// OutboxMessage восстанавливает исходное outbox-событие для повторной публикации.
func (d DeadLetter) OutboxMessage() OutboxMessage {
	return OutboxMessage{
		ID:            d.OutboxID,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		EventType:     d.EventType,
		Payload:       []byte(d.Payload),
	}
}
