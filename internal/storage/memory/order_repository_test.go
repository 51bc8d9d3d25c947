package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		CustomerID: "customer-1",
		Products: []domain.OrderProduct{
			{ProductID: "product-1", PriceMinor: 500, Quantity: 5, CreatedAt: createdAt},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateFind(t *testing.T) {
	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	repo := memory.NewOrderRepository(store)

	if _, err := customers.Create(context.Background(), domain.Customer{ID: "customer-1", Name: "Jane", Email: "jane@example.com"}); err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	created, err := repo.Create(context.Background(), newOrder("order-1", time.Now().UTC()))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Products[0].ID == "" {
		t.Fatal("expected generated line item id")
	}

	stored, err := repo.FindByID(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Customer.Name != "Jane" {
		t.Fatalf("expected customer snapshot, got %+v", stored.Customer)
	}

	if _, err := repo.Create(context.Background(), newOrder("order-1", time.Now().UTC())); !errors.Is(err, domain.ErrOrderAlreadyExists) {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}
}

func TestOrderRepository_ListByCustomer(t *testing.T) {
	repo := memory.NewOrderRepository(memory.NewStore())
	base := time.Now().UTC()

	for i, id := range []string{"order-a", "order-b", "order-c"} {
		if _, err := repo.Create(context.Background(), newOrder(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	orders, err := repo.ListByCustomer(context.Background(), "customer-1", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "order-c" || orders[1].ID != "order-b" {
		t.Fatalf("expected newest first, got %s, %s", orders[0].ID, orders[1].ID)
	}

	none, err := repo.ListByCustomer(context.Background(), "customer-2", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no orders, got %d, %v", len(none), err)
	}
}
