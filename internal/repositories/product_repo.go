package repositories

import (
	"loja/internal/models"
)

// ProductRepository defines the interface for product data access, including
// the stock ledger primitives. DecrementStock is conditional: it must fail
// with ErrInsufficientStock instead of letting stock go negative, in a single
// atomic step so two concurrent checkouts cannot both pass the check.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error

	// Stock ledger primitives.
	DecrementStock(id string, qty int) error
	IncrementStock(id string, qty int) error
	SetStock(id string, qty int) error

	// Reporting helpers.
	FindLowStock(threshold int) ([]models.Product, error)
	Count() (int64, error)
	CountLowStock(threshold int) (int64, error)
}
