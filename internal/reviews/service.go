package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/internal/products"
	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
	"github.com/arjunmehta/cartly-backend/pkg/metrics"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

const reviewAggregate = "review_stats"

type reviewRepository interface {
	Create(ctx context.Context, review *models.ProductReview) (*models.ProductReview, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductReview, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error)
}

type productAggregator interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateReviewAggregates(ctx context.Context, productID uuid.UUID, totalReviews int, averageRating float64, recent types.RecentReviews) error
	ReviewStats(ctx context.Context, productID uuid.UUID) (int, float64, error)
	RecentReviewEntries(ctx context.Context, productID uuid.UUID) (types.RecentReviews, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the reviews service.
type ServiceParams struct {
	DB      txRunner
	Repo    reviewRepository
	Logger  *logger.Logger
	Metrics *metrics.AggregateMetrics

	// RepoFactory rebinds the review repository to a transaction.
	RepoFactory func(tx *gorm.DB) reviewRepository
	// ProductsFactory rebinds the product aggregate helpers to a transaction.
	ProductsFactory func(tx *gorm.DB) productAggregator
}

// CatalogAggregates returns the ProductsFactory backed by the catalog
// repository, which owns the cached review columns.
func CatalogAggregates() func(tx *gorm.DB) productAggregator {
	return func(tx *gorm.DB) productAggregator {
		return products.NewRepository(tx)
	}
}

// Service exposes review reads and writes.
type Service interface {
	Create(ctx context.Context, userID, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error)
}

type service struct {
	db          txRunner
	repo        reviewRepository
	logg        *logger.Logger
	stats       *metrics.AggregateMetrics
	repoFor     func(tx *gorm.DB) reviewRepository
	productsFor func(tx *gorm.DB) productAggregator
}

// NewService builds a reviews service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db runner is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviews repo is required")
	}
	if params.ProductsFactory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products factory is required")
	}

	repoFor := params.RepoFactory
	if repoFor == nil {
		base, ok := params.Repo.(*Repository)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repo factory is required for custom repositories")
		}
		repoFor = func(tx *gorm.DB) reviewRepository {
			return base.WithTx(tx)
		}
	}

	return &service{
		db:          params.DB,
		repo:        params.Repo,
		logg:        params.Logger,
		stats:       params.Metrics,
		repoFor:     repoFor,
		productsFor: params.ProductsFactory,
	}, nil
}

// Create posts a review and folds it into the product's cached aggregates.
// The review write is authoritative: aggregate maintenance failures are
// recorded but never fail the request.
func (s *service) Create(ctx context.Context, userID, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if input.RatingScore < 0 || input.RatingScore > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating score must be between 0 and 5")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var created *models.ProductReview
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)
		products := s.productsFor(tx)

		product, err := products.LockByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock product")
		}

		review := &models.ProductReview{
			ProductID:   productID,
			UserID:      userID,
			RatingScore: input.RatingScore,
			Comment:     input.Comment,
		}
		created, err = repo.Create(ctx, review)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create review")
		}

		previous := float64(product.TotalReviews)
		newCount := product.TotalReviews + 1
		newAverage := (product.AverageRating*previous + input.RatingScore) / float64(newCount)

		comment := ""
		if created.Comment != nil {
			comment = *created.Comment
		}
		recent := product.RecentReviews.Push(types.RecentReview{
			UserID:      created.UserID,
			ReviewID:    created.ID,
			RatingScore: created.RatingScore,
			Comment:     comment,
			CreatedAt:   created.CreatedAt,
			UpdatedAt:   created.UpdatedAt,
		})

		if err := products.UpdateReviewAggregates(ctx, productID, newCount, newAverage, recent); err != nil {
			s.recordAggregateFailure(ctx, productID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// Delete removes the caller's review and re-derives the product aggregates
// by exact rescan.
func (s *service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFor(tx)
		products := s.productsFor(tx)

		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load review")
		}
		if review.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
		}

		if _, err := products.LockByID(ctx, review.ProductID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to lock product")
			}
			// Product already gone; only the review row needs removing.
			return repo.Delete(ctx, reviewID)
		}

		if err := repo.Delete(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete review")
		}

		count, average, err := products.ReviewStats(ctx, review.ProductID)
		if err != nil {
			s.recordAggregateFailure(ctx, review.ProductID, err)
			return nil
		}
		recent, err := products.RecentReviewEntries(ctx, review.ProductID)
		if err != nil {
			s.recordAggregateFailure(ctx, review.ProductID, err)
			return nil
		}
		if err := products.UpdateReviewAggregates(ctx, review.ProductID, count, average, recent); err != nil {
			s.recordAggregateFailure(ctx, review.ProductID, err)
		}
		return nil
	})
}

// ListByProduct returns one cursor page of a product's reviews.
func (s *service) ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error) {
	result, err := s.repo.ListByProduct(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to list reviews")
	}
	return result, nil
}

func (s *service) recordAggregateFailure(ctx context.Context, productID uuid.UUID, err error) {
	s.stats.IncFailure(reviewAggregate)
	if s.logg != nil {
		s.logg.Error(s.logg.WithProductID(ctx, productID.String()), "review aggregate update failed", err)
	}
}
