package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/enums"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

type orderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, order *models.Order) error
	ListByUser(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
}

type productResolver interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	DB       txRunner
	Repo     orderRepository
	Products productResolver
	Logger   *logger.Logger

	// RepoFactory rebinds the order repository to a transaction.
	RepoFactory func(tx *gorm.DB) orderRepository
}

// Service exposes the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
	Deliver(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	db       txRunner
	repo     orderRepository
	products productResolver
	logg     *logger.Logger
	repoFor  func(tx *gorm.DB) orderRepository
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product resolver is required")
	}

	repoFor := params.RepoFactory
	if repoFor == nil {
		base, ok := params.Repo.(*Repository)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repo factory is required for custom repositories")
		}
		repoFor = func(tx *gorm.DB) orderRepository {
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

// Create places an order. Every referenced product is resolved in a single
// query and its current price and discount are snapshotted onto the line;
// a single missing product fails the whole request with nothing persisted.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}

	merged := map[uuid.UUID]int{}
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if _, seen := merged[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		merged[line.ProductID] += line.Quantity
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to resolve products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
	}

	total := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(ids))
	for _, id := range ids {
		product := byID[id]
		quantity := merged[id]

		unitAfterDiscount := product.Price.Sub(
			product.Price.Mul(product.DiscountPercentage).Div(hundred),
		).Round(2)

		items = append(items, models.OrderLineItem{
			ProductID:              id,
			UnitPriceAtPurchase:    product.Price,
			DiscountAtPurchase:     product.DiscountPercentage,
			UnitPriceAfterDiscount: unitAfterDiscount,
			Quantity:               quantity,
		})
		total = total.Add(unitAfterDiscount.Mul(decimal.NewFromInt(int64(quantity))))
	}

	var created *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)
		order := &models.Order{
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			TotalAmount:     total,
			ShippingAddress: input.ShippingAddress,
			Items:           items,
		}
		var err error
		created, err = repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// Get loads one of the caller's orders.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return FromModel(order), nil
}

// List returns one cursor page of the user's order history.
func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Filters.From != nil && input.Filters.To != nil && input.Filters.From.After(*input.Filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date cannot be after to date")
	}

	result, err := s.repo.ListByUser(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to list orders")
	}
	return result, nil
}

// Deliver marks a pending order delivered and stamps the delivery date.
func (s *service) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, enums.OrderStatusDelivered)
}

// Cancel cancels one of the caller's pending orders.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return s.transition(ctx, orderID, enums.OrderStatusCanceled)
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
		}

		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", order.Status, target))
		}

		order.Status = target
		if target == enums.OrderStatusDelivered {
			now := time.Now().UTC()
			order.DeliveredDate = &now
		}
		if err := repo.UpdateStatus(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update order status")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}
