package services

import (
	"errors"
	"fmt"

	"loja/internal/models"
	"loja/internal/repositories"
)

// ProductService handles business logic related to the product catalog.
type ProductService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.productRepo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(product *models.Product) error {
	if product.Stock < 0 {
		return ErrInvalidStockValue
	}
	return s.productRepo.Create(product)
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	if product.Stock < 0 {
		return ErrInvalidStockValue
	}
	if err := s.productRepo.Update(product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("product %s: %w", product.ID, ErrProductNotFound)
		}
		return err
	}
	return nil
}

// DeleteProduct deletes a product. Deletion is refused while any order item
// still references the product, so order history keeps its snapshots.
func (s *ProductService) DeleteProduct(id string) error {
	count, err := s.orderRepo.CountItemsByProduct(id)
	if err != nil {
		return fmt.Errorf("failed to check product references: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("product %s is referenced by %d order items: %w", id, count, ErrProductInUse)
	}

	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return err
	}
	return nil
}
