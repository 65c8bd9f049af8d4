package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
	"github.com/arjunmehta/cartly-backend/pkg/metrics"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

const stockAggregate = "total_stock_count"

var hundred = decimal.NewFromInt(100)

type productRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindDetailByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	IncrementTotalStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error)
	UpdateAggregates(ctx context.Context, productID uuid.UUID, totalStock, totalReviews int, averageRating float64, recent types.RecentReviews) error
	CreateDescription(ctx context.Context, description *models.ProductDescription) (*models.ProductDescription, error)
	FindDescriptionByProduct(ctx context.Context, productID uuid.UUID) (*models.ProductDescription, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	SumVariantStock(ctx context.Context, productID uuid.UUID) (int, error)
	ReviewStats(ctx context.Context, productID uuid.UUID) (int, float64, error)
	RecentReviewEntries(ctx context.Context, productID uuid.UUID) (types.RecentReviews, error)
	ListProductIDs(ctx context.Context) ([]uuid.UUID, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type categoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	DB         txRunner
	Repo       productRepository
	Categories categoryFinder
	Logger     *logger.Logger
	Metrics    *metrics.AggregateMetrics

	// RepoFactory rebinds the repository to a transaction. Defaults to the
	// GORM-backed repository when Repo is a *Repository.
	RepoFactory func(tx *gorm.DB) productRepository
}

// Service exposes catalog reads and writes.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddDescription(ctx context.Context, productID uuid.UUID, input CreateDescriptionInput) (*DescriptionDTO, error)

	AddVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, variantID uuid.UUID) error

	RepairAggregates(ctx context.Context, productID uuid.UUID) error
	RepairAllAggregates(ctx context.Context) error
}

type service struct {
	db         txRunner
	repo       productRepository
	categories categoryFinder
	logg       *logger.Logger
	stats      *metrics.AggregateMetrics
	repoFor    func(tx *gorm.DB) productRepository
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products repo is required")
	}
	if params.Categories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category finder is required")
	}

	repoFor := params.RepoFactory
	if repoFor == nil {
		base, ok := params.Repo.(*Repository)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repo factory is required for custom repositories")
		}
		repoFor = func(tx *gorm.DB) productRepository {
			return base.WithTx(tx)
		}
	}

	return &service{
		db:         params.DB,
		repo:       params.Repo,
		categories: params.Categories,
		logg:       params.Logger,
		stats:      params.Metrics,
		repoFor:    repoFor,
	}, nil
}

// Create validates and inserts a catalog listing.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.DiscountPercentage.IsNegative() || input.DiscountPercentage.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percentage must be between 0 and 100")
	}

	if _, err := s.categories.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to resolve category")
	}

	product := &models.Product{
		CategoryID:         input.CategoryID,
		Name:               name,
		Brand:              input.Brand,
		Thumbnail:          input.Thumbnail,
		ShortDescription:   input.ShortDescription,
		Price:              input.Price,
		DiscountPercentage: input.DiscountPercentage,
		RecentReviews:      types.RecentReviews{},
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create product")
	}
	return FromModel(created), nil
}

// Get loads the full listing with description and variants.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return FromModel(product), nil
}

// List returns one cursor page of catalog rows.
func (s *service) List(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Filters.PriceMin != nil && input.Filters.PriceMax != nil &&
		input.Filters.PriceMin.GreaterThan(*input.Filters.PriceMax) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot exceed price_max")
	}

	result, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to list products")
	}
	return result, nil
}

// Delete removes the product; detail rows cascade with it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete product")
	}
	return nil
}

// AddDescription attaches the long-form copy to an existing product.
// A product holds at most one description.
func (s *service) AddDescription(ctx context.Context, productID uuid.UUID, input CreateDescriptionInput) (*DescriptionDTO, error) {
	if strings.TrimSpace(input.LongDescription) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "long description is required")
	}

	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}

	if _, err := s.repo.FindDescriptionByProduct(ctx, productID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a description")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check existing description")
	}

	description := &models.ProductDescription{
		ProductID:           productID,
		LongDescription:     input.LongDescription,
		Specifications:      input.Specifications,
		WarrantyPeriodYears: input.WarrantyPeriodYears,
		WarrantyDetails:     input.WarrantyDetails,
		ReturnPolicy:        input.ReturnPolicy,
	}
	created, err := s.repo.CreateDescription(ctx, description)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create description")
	}
	return descriptionFromModel(created), nil
}

// AddVariant inserts a variant and folds its stock into the owning product,
// both inside one transaction.
func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*VariantDTO, error) {
	if input.StockCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	var created *models.ProductVariant
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		if _, err := repo.FindByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
		}

		variant := &models.ProductVariant{
			ProductID:  productID,
			Color:      input.Color,
			Size:       input.Size,
			Price:      input.Price,
			StockCount: input.StockCount,
			Images:     pq.StringArray(input.Images),
		}
		var err error
		created, err = repo.CreateVariant(ctx, variant)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create variant")
		}

		return s.applyStockDelta(ctx, repo, productID, input.StockCount)
	})
	if err != nil {
		return nil, err
	}
	return variantFromModel(created), nil
}

// UpdateVariant mutates a variant and keeps the stock aggregate in step.
func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error) {
	if input.StockCount != nil && *input.StockCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	var updated *models.ProductVariant
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		variant, err := repo.FindVariantByID(ctx, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load variant")
		}

		delta := 0
		if input.StockCount != nil {
			delta = *input.StockCount - variant.StockCount
			variant.StockCount = *input.StockCount
		}
		if input.Color != nil {
			variant.Color = input.Color
		}
		if input.Size != nil {
			variant.Size = input.Size
		}
		if input.Price != nil {
			variant.Price = *input.Price
		}
		if input.Images != nil {
			variant.Images = pq.StringArray(*input.Images)
		}

		updated, err = repo.UpdateVariant(ctx, variant)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update variant")
		}

		return s.applyStockDelta(ctx, repo, variant.ProductID, delta)
	})
	if err != nil {
		return nil, err
	}
	return variantFromModel(updated), nil
}

// DeleteVariant removes a variant and releases its stock from the aggregate.
func (s *service) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		variant, err := repo.FindVariantByID(ctx, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load variant")
		}

		if err := repo.DeleteVariant(ctx, variantID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete variant")
		}

		return s.applyStockDelta(ctx, repo, variant.ProductID, -variant.StockCount)
	})
}

// applyStockDelta keeps total_stock_count in step with variant writes. The
// delta runs in the caller's transaction so a failed increment rolls the
// variant write back with it.
func (s *service) applyStockDelta(ctx context.Context, repo productRepository, productID uuid.UUID, delta int) error {
	affected, err := repo.IncrementTotalStock(ctx, productID, delta)
	if err != nil {
		s.stats.IncFailure(stockAggregate)
		if s.logg != nil {
			s.logg.Error(s.logg.WithProductID(ctx, productID.String()), "stock aggregate update failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update stock aggregate")
	}
	if affected == 0 {
		s.stats.IncFailure(stockAggregate)
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// RepairAggregates re-derives every cached aggregate for one product from
// its detail rows, under a product row lock.
func (s *service) RepairAggregates(ctx context.Context, productID uuid.UUID) error {
	start := time.Now()

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)

		if _, err := repo.LockByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock product")
		}

		totalStock, err := repo.SumVariantStock(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to sum variant stock")
		}
		totalReviews, averageRating, err := repo.ReviewStats(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to compute review stats")
		}
		recent, err := repo.RecentReviewEntries(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to rebuild recent reviews")
		}

		return repo.UpdateAggregates(ctx, productID, totalStock, totalReviews, averageRating, recent)
	})
	if err != nil {
		s.stats.IncFailure(stockAggregate)
		return err
	}

	s.stats.IncRepair(stockAggregate)
	s.stats.ObserveRepairDuration(stockAggregate, time.Since(start))
	return nil
}

// RepairAllAggregates walks every product and repairs it. Failures are
// logged and counted but do not stop the sweep.
func (s *service) RepairAllAggregates(ctx context.Context) error {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list products for repair")
	}

	var failed int
	for _, id := range ids {
		if err := s.RepairAggregates(ctx, id); err != nil {
			failed++
			if s.logg != nil {
				s.logg.Error(s.logg.WithProductID(ctx, id.String()), "aggregate repair failed", err)
			}
		}
	}
	if failed > 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "aggregate repair completed with failures")
	}
	return nil
}
