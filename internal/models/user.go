package models

import "gorm.io/gorm"

// User roles. Authorization decisions use the Role field exclusively.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a user of the store. Users are created lazily on their
// first successful PIN verification, so there is no password field.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Name       string `json:"name" gorm:"type:varchar(100)" validate:"required,min=1,max=100"`
	Role       string `json:"role" gorm:"type:varchar(20);default:user" validate:"omitempty,oneof=user admin"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// PublicUser is the projection of a User returned by authentication responses.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the user projection safe to hand to clients.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}
