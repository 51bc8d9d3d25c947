package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{
		ProductID:   "p-1",
		ProductName: "Widget",
		Requested:   15,
		Available:   10,
	}

	want := "Widget requested quantity (15) is greater than your storage (10)"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected errors.Is(err, ErrInsufficientStock)")
	}

	wrapped := fmt.Errorf("create order: %w", err)
	var stockErr *InsufficientStockError
	if !errors.As(wrapped, &stockErr) {
		t.Fatal("expected errors.As to unwrap InsufficientStockError")
	}
	if stockErr.ProductID != "p-1" {
		t.Fatalf("unexpected product id: %s", stockErr.ProductID)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "customer", err: ErrCustomerNotFound, want: true},
		{name: "order wrapped", err: fmt.Errorf("load: %w", ErrOrderNotFound), want: true},
		{name: "product", err: ErrProductNotFound, want: true},
		{name: "stock", err: ErrInsufficientStock, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "idempotency already exists",
			err:  ErrIdempotencyKeyAlreadyExists,
			want: true,
		},
		{
			name: "idempotency hash mismatch",
			err:  ErrIdempotencyHashMismatch,
			want: true,
		},
		{
			name: "wrapped idempotency conflict",
			err:  errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")),
			want: true,
		},
		{
			name: "non idempotency error",
			err:  ErrStockConflict,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsIdempotencyConflict(tt.err)
			if got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
