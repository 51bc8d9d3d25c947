package catalog_test

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newService() *catalog.Service {
	store := memory.NewStore()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return catalog.NewService(memory.NewCustomerRepository(store), memory.NewProductRepository(store), logger.WithField("component", "test"))
}

func TestCreateCustomer(t *testing.T) {
	svc := newService()

	customer, err := svc.CreateCustomer(context.Background(), " Jane ", "jane@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, customer.ID)
	require.Equal(t, "Jane", customer.Name)
	require.False(t, customer.CreatedAt.IsZero())

	_, err = svc.CreateCustomer(context.Background(), "Other", "jane@example.com")
	require.ErrorIs(t, err, domain.ErrCustomerEmailTaken)
}

func TestCreateCustomer_Invalid(t *testing.T) {
	svc := newService()

	_, err := svc.CreateCustomer(context.Background(), "", "not-an-email")
	require.ErrorIs(t, err, domain.ErrInvalidCustomer)
	require.ErrorIs(t, err, domain.ErrCustomerNameRequired)
	require.ErrorIs(t, err, domain.ErrCustomerEmailInvalid)
}

func TestCreateProductAndShow(t *testing.T) {
	svc := newService()

	product, err := svc.CreateProduct(context.Background(), "Widget", 500, 10)
	require.NoError(t, err)
	require.NotEmpty(t, product.ID)

	got, err := svc.ShowProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, "Widget", got.Name)
	require.Equal(t, int64(500), got.PriceMinor)
	require.Equal(t, int32(10), got.Quantity)

	_, err = svc.CreateProduct(context.Background(), "Widget", 100, 1)
	require.ErrorIs(t, err, domain.ErrProductNameTaken)

	_, err = svc.ShowProduct(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCreateProduct_Invalid(t *testing.T) {
	svc := newService()

	_, err := svc.CreateProduct(context.Background(), " ", -1, -5)
	require.ErrorIs(t, err, domain.ErrInvalidProduct)
	require.ErrorIs(t, err, domain.ErrProductPriceInvalid)
	require.ErrorIs(t, err, domain.ErrProductQuantityInvalid)
}
