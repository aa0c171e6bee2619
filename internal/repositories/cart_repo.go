package repositories

import (
	"loja/internal/models"
)

// CartRepository defines the interface for cart and cart-item data access.
// GetByUserID loads the cart with its items and their product snapshots.
type CartRepository interface {
	GetByUserID(userID string) (*models.Cart, error)
	Create(cart *models.Cart) error

	GetItem(id string) (*models.CartItem, error)
	GetItemByCartAndProduct(cartID, productID string) (*models.CartItem, error)
	CreateItem(item *models.CartItem) error
	UpdateItem(item *models.CartItem) error
	DeleteItem(id string) error
	DeleteItemsByCartID(cartID string) error
}
