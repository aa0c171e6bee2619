package services

import (
	"errors"
	"fmt"

	"loja/internal/repositories"
)

// StockService is the stock ledger: it owns every mutation of product stock
// and guarantees stock never goes negative. Reservation uses the repository's
// conditional decrement, so the check and the apply are one atomic step and
// two concurrent checkouts cannot both pass the check.
type StockService struct {
	productRepo repositories.ProductRepository
}

// NewStockService creates a new StockService.
func NewStockService(productRepo repositories.ProductRepository) *StockService {
	return &StockService{
		productRepo: productRepo,
	}
}

// Reserve decrements a product's stock by qty, failing with
// ErrInsufficientStock when the product does not hold qty units.
func (s *StockService) Reserve(productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve %d of product %s: %w", qty, productID, ErrInvalidQuantity)
	}
	if err := s.productRepo.DecrementStock(productID, qty); err != nil {
		switch {
		case errors.Is(err, repositories.ErrInsufficientStock):
			return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
		case errors.Is(err, repositories.ErrNotFound):
			return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
		}
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

// Release returns qty units to a product's stock. Used when a still-pending
// order is cancelled and its reservation is undone.
func (s *StockService) Release(productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release %d of product %s: %w", qty, productID, ErrInvalidQuantity)
	}
	if err := s.productRepo.IncrementStock(productID, qty); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
		}
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return nil
}

// SetStock overwrites a product's stock level. Administrative override.
func (s *StockService) SetStock(productID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("set stock of product %s to %d: %w", productID, qty, ErrInvalidStockValue)
	}
	if err := s.productRepo.SetStock(productID, qty); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
		}
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

// AdjustStock shifts a product's stock by delta. A negative delta that would
// take stock below zero fails with ErrInvalidStockValue and leaves the stock
// unchanged.
func (s *StockService) AdjustStock(productID string, delta int) error {
	switch {
	case delta > 0:
		return s.Release(productID, delta)
	case delta < 0:
		if err := s.productRepo.DecrementStock(productID, -delta); err != nil {
			switch {
			case errors.Is(err, repositories.ErrInsufficientStock):
				return fmt.Errorf("adjust stock of product %s by %d: %w", productID, delta, ErrInvalidStockValue)
			case errors.Is(err, repositories.ErrNotFound):
				return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
			}
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
	}
	// delta == 0 is a no-op, but the product must still exist.
	if delta == 0 {
		if _, err := s.productRepo.GetByID(productID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
			}
			return err
		}
	}
	return nil
}
