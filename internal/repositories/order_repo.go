package repositories

import (
	"loja/internal/models"
)

// OrderRepository defines the interface for order data access. Create
// persists the order header together with its item snapshots. Read methods
// load items with their product references.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByUserID(userID string) ([]models.Order, error)
	GetAll() ([]models.Order, error)
	GetByStatus(status string) ([]models.Order, error)
	GetRecent(limit int) ([]models.Order, error)
	UpdateStatus(id string, status string) error
	Stats() (*models.OrderStats, error)

	// CountItemsByProduct backs the product-deletion guard: a product
	// referenced by any order item must not be deleted.
	CountItemsByProduct(productID string) (int64, error)
}
