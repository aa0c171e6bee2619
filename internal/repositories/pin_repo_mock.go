package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"loja/internal/models"

	"github.com/google/uuid"
)

// MockPinRepository is an in-memory implementation of PinRepository.
type MockPinRepository struct {
	pins map[string]models.PinVerification
	mu   sync.RWMutex
}

// NewMockPinRepository creates a new instance of MockPinRepository.
func NewMockPinRepository() *MockPinRepository {
	return &MockPinRepository{
		pins: make(map[string]models.PinVerification),
	}
}

// Create adds a newly issued PIN.
func (r *MockPinRepository) Create(pin *models.PinVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pin.ID == "" {
		pin.ID = uuid.New().String()
	}
	if pin.CreatedAt.IsZero() {
		pin.CreatedAt = time.Now()
	}
	r.pins[pin.ID] = *pin
	return nil
}

// FindActiveByEmail returns unused, unexpired rows for an email, newest first.
func (r *MockPinRepository) FindActiveByEmail(email string, now time.Time) ([]models.PinVerification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pins []models.PinVerification
	for _, p := range r.pins {
		if p.Email == email && p.Active(now) {
			pins = append(pins, p)
		}
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].CreatedAt.After(pins[j].CreatedAt) })
	return pins, nil
}

// MarkUsed flags a PIN as consumed. An already consumed row reports
// ErrNotFound, mirroring the conditional update of the GORM implementation.
func (r *MockPinRepository) MarkUsed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin, ok := r.pins[id]
	if !ok || pin.Used {
		return fmt.Errorf("pin %s: %w", id, ErrNotFound)
	}
	pin.Used = true
	r.pins[id] = pin
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (r *MockPinRepository) DeleteExpired(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.pins {
		if p.ExpiresAt.Before(now) {
			delete(r.pins, id)
		}
	}
	return nil
}
