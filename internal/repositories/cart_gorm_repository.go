package repositories

import (
	"errors"
	"fmt"
	"loja/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetByUserID retrieves a user's cart with items and product snapshots.
func (r *GORMCartRepository) GetByUserID(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.Preload("Items.Product").First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// Create creates a new cart. The unique index on user_id is the authoritative
// guard for the one-cart-per-user invariant.
func (r *GORMCartRepository) Create(cart *models.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	if err := r.db.Create(cart).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cart for user %s: %w", cart.UserID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// GetItem retrieves a cart item by its ID with the product snapshot.
func (r *GORMCartRepository) GetItem(id string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.Preload("Product").First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item %s: %w", id, err)
	}
	return &item, nil
}

// GetItemByCartAndProduct retrieves the line for a product within a cart.
func (r *GORMCartRepository) GetItemByCartAndProduct(cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item for product %s: %w", productID, err)
	}
	return &item, nil
}

// CreateItem adds a new line to a cart. The composite unique index on
// (cart_id, product_id) rejects a racing duplicate insert.
func (r *GORMCartRepository) CreateItem(item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cart item for product %s: %w", item.ProductID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateItem saves a modified cart line.
func (r *GORMCartRepository) UpdateItem(item *models.CartItem) error {
	res := r.db.Model(&models.CartItem{}).Where("id = ?", item.ID).Update("quantity", item.Quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteItem removes a single cart line. The delete is unscoped: a
// soft-deleted row would keep occupying the (cart_id, product_id) unique
// index and block the product from ever being re-added.
func (r *GORMCartRepository) DeleteItem(id string) error {
	res := r.db.Unscoped().Delete(&models.CartItem{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteItemsByCartID removes every line of a cart. The cart row persists.
// Unscoped for the same reason as DeleteItem: the unique index slot must be
// freed for the next purchase of the same product.
func (r *GORMCartRepository) DeleteItemsByCartID(cartID string) error {
	if err := r.db.Unscoped().Delete(&models.CartItem{}, "cart_id = ?", cartID).Error; err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", cartID, err)
	}
	return nil
}
