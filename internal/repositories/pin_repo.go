package repositories

import (
	"time"

	"loja/internal/models"
)

// PinRepository defines the interface for one-time PIN persistence.
// FindActiveByEmail returns unused, unexpired rows for an email, newest
// first, so the most recently issued PIN is matched ahead of older ones.
// MarkUsed consumes only a still-unused row; an already consumed or missing
// row reports ErrNotFound, so of two racing verifications exactly one wins.
type PinRepository interface {
	Create(pin *models.PinVerification) error
	FindActiveByEmail(email string, now time.Time) ([]models.PinVerification, error)
	MarkUsed(id string) error
	DeleteExpired(now time.Time) error
}
