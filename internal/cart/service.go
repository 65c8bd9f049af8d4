package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db"
	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
)

type cartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	DB       txRunner
	Repo     cartRepository
	Products productFinder
	Logger   *logger.Logger

	// RepoFactory rebinds the cart repository to a transaction.
	RepoFactory func(tx *gorm.DB) cartRepository
}

// Service exposes the single-open-cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	db       txRunner
	repo     cartRepository
	products productFinder
	logg     *logger.Logger
	repoFor  func(tx *gorm.DB) cartRepository
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}

	repoFor := params.RepoFactory
	if repoFor == nil {
		base, ok := params.Repo.(*Repository)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repo factory is required for custom repositories")
		}
		repoFor = func(tx *gorm.DB) cartRepository {
			return base.WithTx(tx)
		}
	}

	return &service{
		db:       params.DB,
		repo:     params.Repo,
		products: params.Products,
		logg:     params.Logger,
		repoFor:  repoFor,
	}, nil
}

// Get returns the user's cart, creating an empty one on first access.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(cart), nil
}

// AddItem merges a product into the cart: a repeated product adds to the
// existing line's quantity instead of creating a second line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to resolve product")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		cart, err := s.loadOrCreate(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItem(ctx, cart.ID, input.ProductID)
		if err == nil {
			return repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up cart line")
		}

		_, err = repo.CreateItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			AddedAt:   time.Now().UTC(),
		})
		if err != nil {
			// A concurrent insert of the same product lands on the unique
			// index; fold the quantity into the winning line instead.
			if db.IsUniqueViolation(err, "") {
				existing, findErr := repo.FindItem(ctx, cart.ID, input.ProductID)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "failed to merge cart line")
				}
				return repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem sets an absolute quantity on an existing line.
func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := s.loadItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart line")
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes one line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	item, err := s.loadItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove cart line")
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart; the cart row itself stays.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to clear.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear cart")
	}
	return nil
}

func (s *service) loadOrCreate(ctx context.Context, repo cartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}

	created, err := repo.CreateCart(ctx, &models.Cart{UserID: userID})
	if err != nil {
		// Two first-touch requests can race on the per-user unique index.
		if db.IsUniqueViolation(err, "") {
			return repo.FindByUser(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart")
	}
	return created, nil
}

func (s *service) loadItem(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart line")
	}
	return item, nil
}
