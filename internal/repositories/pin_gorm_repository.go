package repositories

import (
	"fmt"
	"time"

	"loja/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPinRepository is a GORM implementation of PinRepository.
type GORMPinRepository struct {
	db *gorm.DB
}

// NewGORMPinRepository creates a new instance of GORMPinRepository.
func NewGORMPinRepository(db *gorm.DB) *GORMPinRepository {
	return &GORMPinRepository{
		db: db,
	}
}

// Create persists a newly issued PIN.
func (r *GORMPinRepository) Create(pin *models.PinVerification) error {
	if pin.ID == "" {
		pin.ID = uuid.New().String()
	}
	if err := r.db.Create(pin).Error; err != nil {
		return fmt.Errorf("failed to create pin verification: %w", err)
	}
	return nil
}

// FindActiveByEmail returns the unused, unexpired rows for an email,
// newest first.
func (r *GORMPinRepository) FindActiveByEmail(email string, now time.Time) ([]models.PinVerification, error) {
	var pins []models.PinVerification
	err := r.db.Where("email = ? AND used = ? AND expires_at > ?", email, false, now).
		Order("created_at desc").
		Find(&pins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active pins for %s: %w", email, err)
	}
	return pins, nil
}

// MarkUsed flags a PIN as consumed so it cannot be replayed. The used guard
// in the WHERE clause makes the consume atomic: of two concurrent
// verifications only one flips the row, the other sees zero rows affected.
func (r *GORMPinRepository) MarkUsed(id string) error {
	res := r.db.Model(&models.PinVerification{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark pin %s used: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pin %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteExpired garbage-collects rows whose expiry has passed.
func (r *GORMPinRepository) DeleteExpired(now time.Time) error {
	err := r.db.Unscoped().
		Where("expires_at < ?", now).
		Delete(&models.PinVerification{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete expired pins: %w", err)
	}
	return nil
}
