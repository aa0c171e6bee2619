package services

import (
	"errors"
	"fmt"

	"loja/internal/models"
	"loja/internal/repositories"
)

// CartService handles business logic for the cart aggregate. The stock check
// on AddItem is advisory only: it validates against live stock at the time of
// adding, but nothing is reserved until checkout.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetOrCreateCart returns the user's cart with items and product snapshots,
// creating an empty cart on first use.
func (s *CartService) GetOrCreateCart(userID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart = &models.Cart{UserID: userID}
	if createErr := s.cartRepo.Create(cart); createErr != nil {
		// A concurrent request may have created the cart first; the unique
		// index on user_id decides the winner and we reload.
		if errors.Is(createErr, repositories.ErrDuplicate) {
			return s.cartRepo.GetByUserID(userID)
		}
		return nil, fmt.Errorf("failed to create cart: %w", createErr)
	}
	return cart, nil
}

// AddItem adds qty of a product to the user's cart. If the product already
// has a line, the quantities are summed. The stock check is against current
// stock, not a hold.
func (s *CartService) AddItem(userID, productID string, qty int) (*models.CartItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if qty > product.Stock {
		return nil, fmt.Errorf("product %s has %d in stock, %d requested: %w",
			product.Name, product.Stock, qty, ErrInsufficientStock)
	}

	cart, err := s.GetOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.GetItemByCartAndProduct(cart.ID, productID)
	switch {
	case err == nil:
		item.Quantity += qty
		if err := s.cartRepo.UpdateItem(item); err != nil {
			return nil, fmt.Errorf("failed to update cart line: %w", err)
		}
	case errors.Is(err, repositories.ErrNotFound):
		item = &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
		if createErr := s.cartRepo.CreateItem(item); createErr != nil {
			if !errors.Is(createErr, repositories.ErrDuplicate) {
				return nil, fmt.Errorf("failed to create cart line: %w", createErr)
			}
			// Lost the race for the first line of this product: fold the
			// quantity into the line the winner created. One retry only; a
			// duplicate with no visible line means the store is broken.
			item, err = s.cartRepo.GetItemByCartAndProduct(cart.ID, productID)
			if err != nil {
				return nil, fmt.Errorf("failed to look up cart line after duplicate insert: %w", err)
			}
			item.Quantity += qty
			if err := s.cartRepo.UpdateItem(item); err != nil {
				return nil, fmt.Errorf("failed to update cart line: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("failed to look up cart line: %w", err)
	}

	item.Product = product
	return item, nil
}

// UpdateItemQuantity overwrites a cart line's quantity. No incremental add.
func (s *CartService) UpdateItemQuantity(cartItemID string, qty int) (*models.CartItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.cartRepo.GetItem(cartItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("cart item %s: %w", cartItemID, ErrCartItemNotFound)
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	item.Quantity = qty
	if err := s.cartRepo.UpdateItem(item); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes a single cart line.
func (s *CartService) RemoveItem(cartItemID string) error {
	if err := s.cartRepo.DeleteItem(cartItemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("cart item %s: %w", cartItemID, ErrCartItemNotFound)
		}
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear deletes all lines of the user's cart. A user without a cart is a
// no-op, not an error.
func (s *CartService) Clear(userID string) error {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if err := s.cartRepo.DeleteItemsByCartID(cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Total sums product price times quantity over the cart's lines using the
// current (live) product price. A user without a cart totals zero.
func (s *CartService) Total(userID string) (float64, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load cart: %w", err)
	}

	var total float64
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		total += item.Product.Price * float64(item.Quantity)
	}
	return total, nil
}

// Summary returns the cart's lines, live total and line count in one shot.
func (s *CartService) Summary(userID string) (*models.CartSummary, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.CartSummary{Items: []models.CartItem{}}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	summary := &models.CartSummary{
		Items:     cart.Items,
		ItemCount: len(cart.Items),
	}
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		summary.Total += item.Product.Price * float64(item.Quantity)
	}
	if summary.Items == nil {
		summary.Items = []models.CartItem{}
	}
	return summary, nil
}
