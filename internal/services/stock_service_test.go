package services_test

import (
	"math/rand"
	"testing"

	"loja/internal/models"
	"loja/internal/repositories"
	"loja/internal/services"

	"github.com/stretchr/testify/assert"
)

func newStockFixture(t *testing.T, stock int) (*services.StockService, *repositories.MockProductRepository, string) {
	t.Helper()
	repo := repositories.NewMockProductRepository()
	product := &models.Product{Name: "Widget", Price: 9.90, Stock: stock, Category: "tools"}
	assert.NoError(t, repo.Create(product))
	return services.NewStockService(repo), repo, product.ID
}

func currentStock(t *testing.T, repo *repositories.MockProductRepository, id string) int {
	t.Helper()
	product, err := repo.GetByID(id)
	assert.NoError(t, err)
	return product.Stock
}

func TestStockService_Reserve(t *testing.T) {
	service, repo, id := newStockFixture(t, 5)

	// Reserving within available stock succeeds.
	assert.NoError(t, service.Reserve(id, 3))
	assert.Equal(t, 2, currentStock(t, repo, id))

	// Reserving more than available fails and leaves stock unchanged.
	err := service.Reserve(id, 3)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	assert.Equal(t, 2, currentStock(t, repo, id))

	// Reserving exactly to zero is allowed.
	assert.NoError(t, service.Reserve(id, 2))
	assert.Equal(t, 0, currentStock(t, repo, id))

	// Nothing left: even one unit fails.
	err = service.Reserve(id, 1)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	assert.Equal(t, 0, currentStock(t, repo, id))
}

func TestStockService_Reserve_InvalidQuantity(t *testing.T) {
	service, repo, id := newStockFixture(t, 5)

	assert.ErrorIs(t, service.Reserve(id, 0), services.ErrInvalidQuantity)
	assert.ErrorIs(t, service.Reserve(id, -2), services.ErrInvalidQuantity)
	assert.Equal(t, 5, currentStock(t, repo, id))
}

func TestStockService_Reserve_UnknownProduct(t *testing.T) {
	service, _, _ := newStockFixture(t, 5)

	err := service.Reserve("no-such-product", 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestStockService_Release(t *testing.T) {
	service, repo, id := newStockFixture(t, 2)

	assert.NoError(t, service.Release(id, 3))
	assert.Equal(t, 5, currentStock(t, repo, id))

	assert.ErrorIs(t, service.Release(id, 0), services.ErrInvalidQuantity)
	assert.ErrorIs(t, service.Release("no-such-product", 1), services.ErrProductNotFound)
}

func TestStockService_SetStock(t *testing.T) {
	service, repo, id := newStockFixture(t, 7)

	assert.NoError(t, service.SetStock(id, 0))
	assert.Equal(t, 0, currentStock(t, repo, id))

	assert.NoError(t, service.SetStock(id, 42))
	assert.Equal(t, 42, currentStock(t, repo, id))

	err := service.SetStock(id, -1)
	assert.ErrorIs(t, err, services.ErrInvalidStockValue)
	assert.Equal(t, 42, currentStock(t, repo, id))

	assert.ErrorIs(t, service.SetStock("no-such-product", 1), services.ErrProductNotFound)
}

func TestStockService_AdjustStock(t *testing.T) {
	service, repo, id := newStockFixture(t, 10)

	assert.NoError(t, service.AdjustStock(id, 5))
	assert.Equal(t, 15, currentStock(t, repo, id))

	assert.NoError(t, service.AdjustStock(id, -15))
	assert.Equal(t, 0, currentStock(t, repo, id))

	// A delta that would go below zero is rejected and nothing is applied.
	err := service.AdjustStock(id, -1)
	assert.ErrorIs(t, err, services.ErrInvalidStockValue)
	assert.Equal(t, 0, currentStock(t, repo, id))

	// Zero delta is a no-op but still requires the product to exist.
	assert.NoError(t, service.AdjustStock(id, 0))
	assert.ErrorIs(t, service.AdjustStock("no-such-product", 0), services.ErrProductNotFound)
}

// TestStockService_NeverNegative drives a long random sequence of ledger
// operations and checks the non-negativity invariant after every step.
func TestStockService_NeverNegative(t *testing.T) {
	service, repo, id := newStockFixture(t, 20)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0:
			_ = service.Reserve(id, rng.Intn(10)+1)
		case 1:
			_ = service.Release(id, rng.Intn(10)+1)
		case 2:
			_ = service.SetStock(id, rng.Intn(30)-5)
		case 3:
			_ = service.AdjustStock(id, rng.Intn(21)-10)
		}
		if stock := currentStock(t, repo, id); stock < 0 {
			t.Fatalf("stock went negative (%d) after %d operations", stock, i+1)
		}
	}
}
