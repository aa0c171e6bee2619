package models

import (
	"time"

	"gorm.io/gorm"
)

// PinVerification stores one issued one-time PIN. PinHash holds a bcrypt
// hash of the 6-digit code; the plaintext never touches the database.
// A row is consumable only while !Used and ExpiresAt is in the future.
type PinVerification struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email      string    `json:"email" gorm:"index;type:varchar(255)" validate:"required,email"`
	PinHash    string    `json:"-" gorm:"type:varchar(255)"`
	ExpiresAt  time.Time `json:"expires_at"`
	Used       bool      `json:"used"`
	gorm.Model           // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// Active reports whether the row can still be consumed at the given instant.
func (p *PinVerification) Active(now time.Time) bool {
	return !p.Used && p.ExpiresAt.After(now)
}
