package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"loja/internal/models"
	"loja/internal/repositories"
)

// EventPublisher publishes order lifecycle events to a message broker.
// A nil publisher disables eventing; publishing is always best effort and
// never fails the business operation.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderService handles the order lifecycle: converting a cart into an
// immutable order snapshot, status transitions and cancellation-triggered
// stock release.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	stock       *StockService
	publisher   EventPublisher

	// releaseOnCancel holds the statuses whose cancellation returns reserved
	// stock to the shelf. The observed behavior releases for pending only;
	// orders further along are assumed handed off to fulfillment.
	releaseOnCancel map[string]bool
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

// WithReleaseOnCancel overrides which prior statuses trigger stock
// restitution when an order is cancelled.
func WithReleaseOnCancel(statuses ...string) OrderOption {
	return func(s *OrderService) {
		s.releaseOnCancel = make(map[string]bool, len(statuses))
		for _, st := range statuses {
			s.releaseOnCancel[st] = true
		}
	}
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository,
	stock *StockService,
	publisher EventPublisher,
	opts ...OrderOption,
) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		stock:       stock,
		publisher:   publisher,
		releaseOnCancel: map[string]bool{
			models.OrderStatusPending: true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromCart converts the user's cart into a pending order. Product
// prices are snapshotted into the order items at this moment; stock is
// reserved line by line through the ledger's conditional decrement, and any
// failure rolls back reservations already applied, so either the whole cart
// is reserved or none of it is.
func (s *OrderService) CreateFromCart(userID, shippingAddress, paymentMethod string) (*models.Order, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Re-read every product for live price and stock; the cart's snapshots
	// may be stale.
	type line struct {
		item    models.CartItem
		product *models.Product
	}
	lines := make([]line, 0, len(cart.Items))
	var totalAmount float64
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrProductNotFound)
			}
			return nil, fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("product %s has %d in stock, %d requested: %w",
				product.Name, product.Stock, item.Quantity, ErrInsufficientStock)
		}
		lines = append(lines, line{item: item, product: product})
		totalAmount += product.Price * float64(item.Quantity)
	}

	// Reserve all lines, rolling back on the first failure so no partial
	// reservation survives. The conditional decrement closes the window
	// between the check above and the apply here.
	reserved := make([]line, 0, len(lines))
	rollback := func() {
		for _, l := range reserved {
			if err := s.stock.Release(l.item.ProductID, l.item.Quantity); err != nil {
				log.Printf("Failed to roll back reservation of %d x product %s: %v",
					l.item.Quantity, l.item.ProductID, err)
			}
		}
	}
	for _, l := range lines {
		if err := s.stock.Reserve(l.item.ProductID, l.item.Quantity); err != nil {
			rollback()
			if errors.Is(err, ErrInsufficientStock) {
				return nil, fmt.Errorf("product %s: %w", l.product.Name, ErrInsufficientStock)
			}
			return nil, err
		}
		reserved = append(reserved, l)
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalAmount:     totalAmount,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: l.item.ProductID,
			Quantity:  l.item.Quantity,
			UnitPrice: l.product.Price,
			Product:   l.product,
		})
	}
	if err := s.orderRepo.Create(order); err != nil {
		rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// The cart row persists for reuse; only its lines are consumed.
	if err := s.cartRepo.DeleteItemsByCartID(cart.ID); err != nil {
		log.Printf("Order %s created but clearing cart %s failed: %v", order.ID, cart.ID, err)
	}

	s.publish("order.created", order)
	return order, nil
}

// GetOrderByID retrieves a single order with its items.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
		}
		return nil, err
	}
	return order, nil
}

// GetUserOrders retrieves a user's orders, most recent first.
func (s *OrderService) GetUserOrders(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUserID(userID)
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrdersByStatus retrieves orders in a given status.
func (s *OrderService) GetOrdersByStatus(status string) ([]models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}
	return s.orderRepo.GetByStatus(status)
}

// GetRecentOrders retrieves the latest orders up to limit.
func (s *OrderService) GetRecentOrders(limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.orderRepo.GetRecent(limit)
}

// UpdateStatus sets an order's status to any of the five values. Transition
// legality beyond the cancellation rule is the caller's concern.
func (s *OrderService) UpdateStatus(id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}
	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return s.GetOrderByID(id)
}

// Cancel cancels an order. A delivered order cannot be cancelled. Stock is
// returned to the shelf only when the prior status is in the release policy
// (pending by default).
func (s *OrderService) Cancel(id string) (*models.Order, error) {
	order, err := s.GetOrderByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusDelivered {
		return nil, fmt.Errorf("order %s is delivered: %w", id, ErrInvalidTransition)
	}

	priorStatus := order.Status
	if err := s.orderRepo.UpdateStatus(id, models.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if s.releaseOnCancel[priorStatus] {
		for _, item := range order.Items {
			if err := s.stock.Release(item.ProductID, item.Quantity); err != nil {
				return nil, fmt.Errorf("order %s cancelled but releasing stock for product %s failed: %w",
					id, item.ProductID, err)
			}
		}
	}

	updated, err := s.GetOrderByID(id)
	if err != nil {
		return nil, err
	}
	s.publish("order.cancelled", updated)
	return updated, nil
}

// Stats counts orders per status plus a grand total.
func (s *OrderService) Stats() (*models.OrderStats, error) {
	return s.orderRepo.Stats()
}

func (s *OrderService) publish(routingKey string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  order.Status,
		"total":   order.TotalAmount,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, order.ID, err)
		return
	}
	if err := s.publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	}
}
