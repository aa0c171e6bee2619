package services_test

import (
	"testing"

	"loja/internal/models"
	"loja/internal/repositories"
	"loja/internal/services"

	"github.com/stretchr/testify/assert"
)

func newProductFixture(t *testing.T) (*services.ProductService, *repositories.MockProductRepository, *repositories.MockOrderRepository) {
	t.Helper()
	productRepo := repositories.NewMockProductRepository()
	orderRepo := repositories.NewMockOrderRepository()
	return services.NewProductService(productRepo, orderRepo), productRepo, orderRepo
}

func TestProductService_GetAllProducts(t *testing.T) {
	service, productRepo, _ := newProductFixture(t)
	seedProduct(t, productRepo, "Caneca", 19.90, 10)
	seedProduct(t, productRepo, "Camiseta", 49.90, 5)

	products, err := service.GetAllProducts()
	assert.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestProductService_GetProductByID(t *testing.T) {
	service, productRepo, _ := newProductFixture(t)
	product := seedProduct(t, productRepo, "Caneca", 19.90, 10)

	got, err := service.GetProductByID(product.ID)
	assert.NoError(t, err)
	assert.Equal(t, product.Name, got.Name)

	_, err = service.GetProductByID("no-such-product")
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestProductService_CreateProduct(t *testing.T) {
	service, _, _ := newProductFixture(t)

	product := &models.Product{Name: "Caneca", Price: 19.90, Stock: 10, Category: "cozinha"}
	assert.NoError(t, service.CreateProduct(product))
	assert.NotEmpty(t, product.ID)

	err := service.CreateProduct(&models.Product{Name: "Ruim", Price: 1, Stock: -1, Category: "x"})
	assert.ErrorIs(t, err, services.ErrInvalidStockValue)
}

func TestProductService_UpdateProduct(t *testing.T) {
	service, productRepo, _ := newProductFixture(t)
	product := seedProduct(t, productRepo, "Caneca", 19.90, 10)

	product.Price = 24.90
	assert.NoError(t, service.UpdateProduct(product))

	got, err := service.GetProductByID(product.ID)
	assert.NoError(t, err)
	assert.InDelta(t, 24.90, got.Price, 1e-9)

	product.Stock = -1
	assert.ErrorIs(t, service.UpdateProduct(product), services.ErrInvalidStockValue)

	err = service.UpdateProduct(&models.Product{ID: "no-such-product", Name: "X", Price: 1, Stock: 1})
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestProductService_DeleteProduct(t *testing.T) {
	service, productRepo, orderRepo := newProductFixture(t)
	free := seedProduct(t, productRepo, "Caneca", 19.90, 10)
	referenced := seedProduct(t, productRepo, "Camiseta", 49.90, 5)

	order := &models.Order{
		UserID: "user-1",
		Status: models.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: referenced.ID, Quantity: 1, UnitPrice: 49.90},
		},
	}
	assert.NoError(t, orderRepo.Create(order))

	// A product referenced by an order item must stay for the history.
	err := service.DeleteProduct(referenced.ID)
	assert.ErrorIs(t, err, services.ErrProductInUse)
	_, err = service.GetProductByID(referenced.ID)
	assert.NoError(t, err)

	// An unreferenced product deletes cleanly.
	assert.NoError(t, service.DeleteProduct(free.ID))
	_, err = service.GetProductByID(free.ID)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	assert.ErrorIs(t, service.DeleteProduct("no-such-product"), services.ErrProductNotFound)
}
