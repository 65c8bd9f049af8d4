package reviews

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubReviewRepo struct {
	reviews map[uuid.UUID]*models.ProductReview
	seq     time.Time
}

func newStubReviewRepo() *stubReviewRepo {
	return &stubReviewRepo{
		reviews: map[uuid.UUID]*models.ProductReview{},
		seq:     time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *stubReviewRepo) Create(ctx context.Context, review *models.ProductReview) (*models.ProductReview, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	s.seq = s.seq.Add(time.Minute)
	review.CreatedAt = s.seq
	review.UpdatedAt = s.seq
	s.reviews[review.ID] = review
	return review, nil
}

func (s *stubReviewRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductReview, error) {
	review, ok := s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return review, nil
}

func (s *stubReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.reviews, id)
	return nil
}

func (s *stubReviewRepo) ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error) {
	out := []ReviewDTO{}
	for _, review := range s.reviews {
		if review.ProductID == input.ProductID {
			out = append(out, *FromModel(review))
		}
	}
	return &ReviewListResult{Reviews: out}, nil
}

type stubAggregator struct {
	repo     *stubReviewRepo
	products map[uuid.UUID]*models.Product
	failures int
	updates  int
}

func (s *stubAggregator) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubAggregator) UpdateReviewAggregates(ctx context.Context, productID uuid.UUID, totalReviews int, averageRating float64, recent types.RecentReviews) error {
	product, ok := s.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.TotalReviews = totalReviews
	product.AverageRating = averageRating
	product.RecentReviews = recent
	s.updates++
	return nil
}

func (s *stubAggregator) ReviewStats(ctx context.Context, productID uuid.UUID) (int, float64, error) {
	count := 0
	sum := 0.0
	for _, review := range s.repo.reviews {
		if review.ProductID == productID {
			count++
			sum += review.RatingScore
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, sum / float64(count), nil
}

func (s *stubAggregator) RecentReviewEntries(ctx context.Context, productID uuid.UUID) (types.RecentReviews, error) {
	out := types.RecentReviews{}
	for _, review := range s.repo.reviews {
		if review.ProductID != productID {
			continue
		}
		comment := ""
		if review.Comment != nil {
			comment = *review.Comment
		}
		out = out.Push(types.RecentReview{
			UserID:      review.UserID,
			ReviewID:    review.ID,
			RatingScore: review.RatingScore,
			Comment:     comment,
			CreatedAt:   review.CreatedAt,
			UpdatedAt:   review.UpdatedAt,
		})
	}
	return out, nil
}

func newTestService(t *testing.T, repo *stubReviewRepo, agg *stubAggregator) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:   stubTxRunner{},
		Repo: repo,
		RepoFactory: func(tx *gorm.DB) reviewRepository {
			return repo
		},
		ProductsFactory: func(tx *gorm.DB) productAggregator {
			return agg
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(agg *stubAggregator) *models.Product {
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Tablet",
		RecentReviews: types.RecentReviews{},
	}
	agg.products[product.ID] = product
	return product
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != want {
		t.Fatalf("expected code %s, got %s", want, typed.Code())
	}
}

func TestCreateReviewUpdatesAggregatesIncrementally(t *testing.T) {
	repo := newStubReviewRepo()
	agg := &stubAggregator{repo: repo, products: map[uuid.UUID]*models.Product{}}
	product := seedProduct(agg)
	svc := newTestService(t, repo, agg)
	ctx := context.Background()
	userID := uuid.New()

	ratings := []float64{4, 2, 5}
	for _, rating := range ratings {
		if _, err := svc.Create(ctx, userID, product.ID, CreateReviewInput{RatingScore: rating}); err != nil {
			t.Fatalf("create review %f: %v", rating, err)
		}
	}

	if product.TotalReviews != 3 {
		t.Fatalf("expected 3 reviews, got %d", product.TotalReviews)
	}
	want := (4.0 + 2.0 + 5.0) / 3.0
	if math.Abs(product.AverageRating-want) > 1e-9 {
		t.Fatalf("expected average %f, got %f", want, product.AverageRating)
	}
	if len(product.RecentReviews) != 3 {
		t.Fatalf("expected 3 cached reviews, got %d", len(product.RecentReviews))
	}
	if product.RecentReviews[0].RatingScore != 5 {
		t.Fatalf("expected newest review first in cache, got %f", product.RecentReviews[0].RatingScore)
	}
}

func TestCreateReviewCacheStaysBounded(t *testing.T) {
	repo := newStubReviewRepo()
	agg := &stubAggregator{repo: repo, products: map[uuid.UUID]*models.Product{}}
	product := seedProduct(agg)
	svc := newTestService(t, repo, agg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, uuid.New(), product.ID, CreateReviewInput{RatingScore: float64(i)}); err != nil {
			t.Fatalf("create review %d: %v", i, err)
		}
	}

	if len(product.RecentReviews) != types.RecentReviewLimit {
		t.Fatalf("expected cache capped at %d, got %d", types.RecentReviewLimit, len(product.RecentReviews))
	}
	if product.RecentReviews[0].RatingScore != 4 {
		t.Fatalf("expected most recent rating first, got %f", product.RecentReviews[0].RatingScore)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	repo := newStubReviewRepo()
	agg := &stubAggregator{repo: repo, products: map[uuid.UUID]*models.Product{}}
	product := seedProduct(agg)
	svc := newTestService(t, repo, agg)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), product.ID, CreateReviewInput{RatingScore: 5.5})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, uuid.Nil, product.ID, CreateReviewInput{RatingScore: 4})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, uuid.New(), uuid.New(), CreateReviewInput{RatingScore: 4})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteReviewRescansAggregates(t *testing.T) {
	repo := newStubReviewRepo()
	agg := &stubAggregator{repo: repo, products: map[uuid.UUID]*models.Product{}}
	product := seedProduct(agg)
	svc := newTestService(t, repo, agg)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, product.ID, CreateReviewInput{RatingScore: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, userID, product.ID, CreateReviewInput{RatingScore: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, userID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if product.TotalReviews != 1 {
		t.Fatalf("expected 1 review after delete, got %d", product.TotalReviews)
	}
	if product.AverageRating != 4 {
		t.Fatalf("expected rescanned average 4, got %f", product.AverageRating)
	}
	if len(product.RecentReviews) != 1 {
		t.Fatalf("expected cache rebuilt with 1 entry, got %d", len(product.RecentReviews))
	}
}

func TestDeleteReviewOwnership(t *testing.T) {
	repo := newStubReviewRepo()
	agg := &stubAggregator{repo: repo, products: map[uuid.UUID]*models.Product{}}
	product := seedProduct(agg)
	svc := newTestService(t, repo, agg)
	ctx := context.Background()

	review, err := svc.Create(ctx, uuid.New(), product.ID, CreateReviewInput{RatingScore: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Delete(ctx, uuid.New(), review.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	err = svc.Delete(ctx, uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}
