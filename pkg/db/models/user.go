package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// User represents a registered shopper account.
type User struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string            `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash    string            `gorm:"column:password_hash;not null"`
	Name            string            `gorm:"column:name;not null"`
	Phone           *string           `gorm:"column:phone"`
	IsEmailVerified bool              `gorm:"column:is_email_verified;not null;default:false"`
	Addresses       types.AddressList `gorm:"column:addresses;type:jsonb;serializer:json"`
	LastLoginAt     *time.Time        `gorm:"column:last_login_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
