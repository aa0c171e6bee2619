package services

import "errors"

// Business error taxonomy. Every service operation fails with one of these
// sentinels (possibly wrapped with context); handlers translate them to HTTP
// status codes with errors.Is. No operation retries internally.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStockValue   = errors.New("stock value must not be negative")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrInvalidOrExpiredPin = errors.New("invalid or expired pin")
	ErrUserNotFound        = errors.New("user not found")
	ErrProductInUse        = errors.New("product is referenced by existing orders")
)
