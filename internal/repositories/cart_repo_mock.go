package repositories

import (
	"fmt"
	"sync"

	"loja/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
// Product snapshots on returned items are resolved through the product
// repository it is constructed with, mirroring the GORM preloads.
type MockCartRepository struct {
	carts    map[string]models.Cart     // keyed by cart ID
	byUser   map[string]string          // user ID -> cart ID
	items    map[string]models.CartItem // keyed by item ID
	products ProductRepository
	mu       sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository(products ProductRepository) *MockCartRepository {
	return &MockCartRepository{
		carts:    make(map[string]models.Cart),
		byUser:   make(map[string]string),
		items:    make(map[string]models.CartItem),
		products: products,
	}
}

// GetByUserID returns a user's cart with its items and product snapshots.
func (r *MockCartRepository) GetByUserID(userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cartID, ok := r.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	cart := r.carts[cartID]
	cart.Items = r.itemsForCart(cartID)
	return &cart, nil
}

func (r *MockCartRepository) itemsForCart(cartID string) []models.CartItem {
	var items []models.CartItem
	for _, item := range r.items {
		if item.CartID != cartID {
			continue
		}
		if r.products != nil {
			if p, err := r.products.GetByID(item.ProductID); err == nil {
				item.Product = p
			}
		}
		items = append(items, item)
	}
	return items
}

// Create adds a new cart, enforcing the one-cart-per-user invariant.
func (r *MockCartRepository) Create(cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[cart.UserID]; ok {
		return fmt.Errorf("cart for user %s: %w", cart.UserID, ErrDuplicate)
	}
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	r.carts[cart.ID] = *cart
	r.byUser[cart.UserID] = cart.ID
	return nil
}

// GetItem returns a cart item by its ID with the product snapshot.
func (r *MockCartRepository) GetItem(id string) (*models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("cart item %s: %w", id, ErrNotFound)
	}
	if r.products != nil {
		if p, err := r.products.GetByID(item.ProductID); err == nil {
			item.Product = p
		}
	}
	return &item, nil
}

// GetItemByCartAndProduct returns the line for a product within a cart.
func (r *MockCartRepository) GetItemByCartAndProduct(cartID, productID string) (*models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.CartID == cartID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
}

// CreateItem adds a new line, rejecting a duplicate (cart, product) pair.
func (r *MockCartRepository) CreateItem(item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return fmt.Errorf("cart item for product %s: %w", item.ProductID, ErrDuplicate)
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	stored := *item
	stored.Product = nil
	r.items[item.ID] = stored
	return nil
}

// UpdateItem overwrites a cart line's quantity.
func (r *MockCartRepository) UpdateItem(item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("cart item %s: %w", item.ID, ErrNotFound)
	}
	existing.Quantity = item.Quantity
	r.items[item.ID] = existing
	return nil
}

// DeleteItem removes a single cart line.
func (r *MockCartRepository) DeleteItem(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("cart item %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// DeleteItemsByCartID removes every line of a cart.
func (r *MockCartRepository) DeleteItemsByCartID(cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.CartID == cartID {
			delete(r.items, id)
		}
	}
	return nil
}
