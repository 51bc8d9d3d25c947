package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestCustomerRepository_CreateAndFind(t *testing.T) {
	repo := memory.NewCustomerRepository(memory.NewStore())

	created, err := repo.Create(context.Background(), domain.Customer{Name: "Jane", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	byID, err := repo.FindByID(context.Background(), created.ID)
	if err != nil || byID.Email != "jane@example.com" {
		t.Fatalf("unexpected FindByID result: %+v, %v", byID, err)
	}

	byEmail, err := repo.FindByEmail(context.Background(), "JANE@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("unexpected FindByEmail result: %+v, %v", byEmail, err)
	}
}

func TestCustomerRepository_EmailTaken(t *testing.T) {
	repo := memory.NewCustomerRepository(memory.NewStore())
	if _, err := repo.Create(context.Background(), domain.Customer{Name: "Jane", Email: "jane@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := repo.Create(context.Background(), domain.Customer{Name: "Other", Email: "Jane@Example.com"})
	if !errors.Is(err, domain.ErrCustomerEmailTaken) {
		t.Fatalf("expected ErrCustomerEmailTaken, got %v", err)
	}

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
