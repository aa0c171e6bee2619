package services

import (
	"errors"
	"fmt"

	"loja/internal/models"
	"loja/internal/repositories"
)

// DefaultLowStockThreshold marks a product as low-stock on the dashboard.
const DefaultLowStockThreshold = 10

// Dashboard is the back-office overview: catalog health, order pipeline and
// user base, as plain counts.
type Dashboard struct {
	Products struct {
		Total      int64 `json:"total"`
		LowStock   int64 `json:"low_stock"`
		OutOfStock int64 `json:"out_of_stock"`
	} `json:"products"`
	Orders models.OrderStats `json:"orders"`
	Users  struct {
		Total int64 `json:"total"`
	} `json:"users"`
}

// UserDetails combines a user with their order history.
type UserDetails struct {
	User   models.User    `json:"user"`
	Orders []models.Order `json:"orders"`
}

// AdminService aggregates read models for the administrative back-office.
type AdminService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository, userRepo repositories.UserRepository) *AdminService {
	return &AdminService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
	}
}

// GetDashboard builds the back-office overview.
func (s *AdminService) GetDashboard() (*Dashboard, error) {
	var d Dashboard

	totalProducts, err := s.productRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	lowStock, err := s.productRepo.CountLowStock(DefaultLowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}
	outOfStock, err := s.productRepo.CountLowStock(0)
	if err != nil {
		return nil, fmt.Errorf("failed to count out of stock products: %w", err)
	}
	d.Products.Total = totalProducts
	d.Products.LowStock = lowStock
	d.Products.OutOfStock = outOfStock

	stats, err := s.orderRepo.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order stats: %w", err)
	}
	d.Orders = *stats

	totalUsers, err := s.userRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	d.Users.Total = totalUsers

	return &d, nil
}

// GetLowStockProducts lists products at or under the threshold, lowest first.
func (s *AdminService) GetLowStockProducts(threshold int) ([]models.Product, error) {
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.productRepo.FindLowStock(threshold)
}

// GetUsers lists all users.
func (s *AdminService) GetUsers() ([]models.User, error) {
	return s.userRepo.GetAll()
}

// GetUserDetails returns a user together with their order history.
func (s *AdminService) GetUserDetails(userID string) (*UserDetails, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
		}
		return nil, err
	}

	orders, err := s.orderRepo.GetByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for user %s: %w", userID, err)
	}

	return &UserDetails{User: *user, Orders: orders}, nil
}
