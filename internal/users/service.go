package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db"
	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto UpdateProfileDTO) (*models.User, error)
	ReplaceAddresses(ctx context.Context, id uuid.UUID, addresses types.AddressList) error
}

// ServiceParams groups dependencies for the users service.
type ServiceParams struct {
	Repo userRepository
}

// Service exposes profile and address-book management.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*UserDTO, error)
	AddAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error)
	RemoveAddress(ctx context.Context, userID, addressID uuid.UUID) (*UserDTO, error)
}

type service struct {
	repo userRepository
}

// NewService builds a users service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// GetProfile returns the caller's profile.
func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateProfile applies name/phone changes and returns the updated profile.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, dto UpdateProfileDTO) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
	}
	if dto.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*dto.Email))
		if normalized == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be blank")
		}
		dto.Email = &normalized
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repo.UpdateProfile(ctx, userID, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return FromModel(user), nil
}

// AddAddress appends a labelled address to the user's address book.
func (s *service) AddAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}

	next := append(types.AddressList(nil), user.Addresses...)
	next = append(next, address)
	return s.persistAddresses(ctx, user, next)
}

// UpdateAddress replaces the address matching its ID.
func (s *service) UpdateAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if address.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	next := append(types.AddressList(nil), user.Addresses...)
	found := false
	for i := range next {
		if next[i].ID == address.ID {
			next[i] = address
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return s.persistAddresses(ctx, user, next)
}

// RemoveAddress drops the address matching addressID.
func (s *service) RemoveAddress(ctx context.Context, userID, addressID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}

	next := make(types.AddressList, 0, len(user.Addresses))
	found := false
	for _, addr := range user.Addresses {
		if addr.ID == addressID {
			found = true
			continue
		}
		next = append(next, addr)
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return s.persistAddresses(ctx, user, next)
}

func (s *service) persistAddresses(ctx context.Context, user *models.User, addresses types.AddressList) (*UserDTO, error) {
	if err := s.repo.ReplaceAddresses(ctx, user.ID, addresses); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save addresses")
	}
	user.Addresses = addresses
	user.UpdatedAt = time.Now().UTC()
	return FromModel(user), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func validateAddress(address types.Address) error {
	if strings.TrimSpace(address.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address city is required")
	}
	if strings.TrimSpace(address.Country) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address country is required")
	}
	return nil
}
