package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"loja/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order with its items.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return &order, nil
}

// GetByUserID returns a user's orders, most recent first.
func (r *MockOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sortOrdersByCreatedDesc(orders)
	return orders, nil
}

// GetAll returns all orders, most recent first.
func (r *MockOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, order)
	}
	sortOrdersByCreatedDesc(orderList)
	return orderList, nil
}

// GetByStatus returns orders in a given status, most recent first.
func (r *MockOrderRepository) GetByStatus(status string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.orders {
		if order.Status == status {
			orders = append(orders, order)
		}
	}
	sortOrdersByCreatedDesc(orders)
	return orders, nil
}

// GetRecent returns the latest orders up to the given limit.
func (r *MockOrderRepository) GetRecent(limit int) ([]models.Order, error) {
	orders, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	if limit < len(orders) {
		orders = orders[:limit]
	}
	return orders, nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// Stats counts orders grouped by status.
func (r *MockOrderRepository) Stats() (*models.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.OrderStats{}
	for _, order := range r.orders {
		stats.Total++
		switch order.Status {
		case models.OrderStatusPending:
			stats.Pending++
		case models.OrderStatusConfirmed:
			stats.Confirmed++
		case models.OrderStatusShipped:
			stats.Shipped++
		case models.OrderStatusDelivered:
			stats.Delivered++
		case models.OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// CountItemsByProduct counts order items referencing a product.
func (r *MockOrderRepository) CountItemsByProduct(productID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, order := range r.orders {
		for _, item := range order.Items {
			if item.ProductID == productID {
				count++
			}
		}
	}
	return count, nil
}

func sortOrdersByCreatedDesc(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
