package models

import "gorm.io/gorm"

// Cart holds a user's purchase intent before checkout. A user has at most
// one cart; the row persists across checkouts while its items are cleared.
type Cart struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID     string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)" validate:"required,uuid"`
	Items      []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	gorm.Model            // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// CartItem is one (product, quantity) line in a cart. The composite unique
// index is the authoritative guard for one line per product per cart.
type CartItem struct {
	ID         string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	CartID     string   `json:"cart_id" gorm:"uniqueIndex:idx_cart_product;type:varchar(36)"`
	ProductID  string   `json:"product_id" gorm:"uniqueIndex:idx_cart_product;type:varchar(36)" validate:"required,uuid"`
	Quantity   int      `json:"quantity" validate:"required,gt=0"`
	Product    *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// CartSummary bundles a cart's lines with the live total for the cart view.
type CartSummary struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}
