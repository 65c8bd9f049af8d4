package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	Phone           *string         `json:"phone,omitempty"`
	IsEmailVerified bool            `json:"is_email_verified"`
	Addresses       []types.Address `json:"addresses"`
	LastLoginAt     *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
}

// UpdateProfileDTO carries the mutable profile attributes. Changing the
// email resets is_email_verified.
type UpdateProfileDTO struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	addresses := []types.Address(u.Addresses)
	if addresses == nil {
		addresses = []types.Address{}
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		IsEmailVerified: u.IsEmailVerified,
		Addresses:       append([]types.Address(nil), addresses...),
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Phone:        c.Phone,
		Addresses:    types.AddressList{},
	}
}
