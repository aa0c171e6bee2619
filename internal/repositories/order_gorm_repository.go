package repositories

import (
	"errors"
	"fmt"
	"loja/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create persists the order header and its items in one transaction so no
// headerless items or itemless headers survive a failure.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order with its items and product references.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items.Product").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// GetByUserID retrieves a user's orders, most recent first.
func (r *GORMOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items.Product").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// GetAll retrieves all orders, most recent first.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items.Product").Order("created_at desc").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByStatus retrieves orders in a given status, most recent first.
func (r *GORMOrderRepository) GetByStatus(status string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items.Product").
		Where("status = ?", status).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get orders by status %s: %w", status, err)
	}
	return orders, nil
}

// GetRecent retrieves the latest orders up to the given limit.
func (r *GORMOrderRepository) GetRecent(limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items.Product").Order("created_at desc").Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an order.
func (r *GORMOrderRepository) UpdateStatus(id string, status string) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

// Stats counts orders grouped by status.
func (r *GORMOrderRepository) Stats() (*models.OrderStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order stats: %w", err)
	}

	stats := &models.OrderStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.OrderStatusPending:
			stats.Pending = row.Count
		case models.OrderStatusConfirmed:
			stats.Confirmed = row.Count
		case models.OrderStatusShipped:
			stats.Shipped = row.Count
		case models.OrderStatusDelivered:
			stats.Delivered = row.Count
		case models.OrderStatusCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}

// CountItemsByProduct counts order items referencing a product.
func (r *GORMOrderRepository) CountItemsByProduct(productID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderItem{}).Where("product_id = ?", productID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count order items for product %s: %w", productID, err)
	}
	return count, nil
}
