package models

import "gorm.io/gorm"

// Order statuses. Delivered and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists every valid status value.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ValidOrderStatus reports whether s is one of the five order statuses.
func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Order is the immutable snapshot created from a cart at checkout.
// TotalAmount is frozen at creation time.
type Order struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID          string      `json:"user_id" gorm:"index;type:varchar(36)" validate:"required,uuid"`
	Status          string      `json:"status" gorm:"type:varchar(20)" validate:"omitempty,oneof=pending confirmed shipped delivered cancelled"`
	TotalAmount     float64     `json:"total_amount"`
	ShippingAddress string      `json:"shipping_address" validate:"required,min=1"`
	PaymentMethod   string      `json:"payment_method" validate:"required,oneof=credit_card debit_card pix boleto"`
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	gorm.Model                  // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// OrderItem is one line of an order. UnitPrice is the product price captured
// at order creation and never changes afterwards.
type OrderItem struct {
	ID         string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string   `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID  string   `json:"product_id" gorm:"index;type:varchar(36)"`
	Quantity   int      `json:"quantity" validate:"required,gt=0"`
	UnitPrice  float64  `json:"unit_price"`
	Product    *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// OrderStats is the per-status order count aggregation.
type OrderStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Shipped   int64 `json:"shipped"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
}
