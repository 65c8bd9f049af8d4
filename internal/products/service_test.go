package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProductRepo struct {
	products     map[uuid.UUID]*models.Product
	descriptions map[uuid.UUID]*models.ProductDescription
	variants     map[uuid.UUID]*models.ProductVariant
	stockDeltas  []int
	listResult   *ProductListResult
	listErr      error
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products:     map[uuid.UUID]*models.Product{},
		descriptions: map[uuid.UUID]*models.ProductDescription{},
		variants:     map[uuid.UUID]*models.ProductVariant{},
	}
}

func (s *stubProductRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubProductRepo) FindDetailByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.FindByID(ctx, id)
}

func (s *stubProductRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.FindByID(ctx, id)
}

func (s *stubProductRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	delete(s.products, id)
	return nil
}

func (s *stubProductRepo) IncrementTotalStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	product, ok := s.products[productID]
	if !ok {
		return 0, nil
	}
	product.TotalStockCount += delta
	s.stockDeltas = append(s.stockDeltas, delta)
	return 1, nil
}

func (s *stubProductRepo) UpdateAggregates(ctx context.Context, productID uuid.UUID, totalStock, totalReviews int, averageRating float64, recent types.RecentReviews) error {
	product, ok := s.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.TotalStockCount = totalStock
	product.TotalReviews = totalReviews
	product.AverageRating = averageRating
	product.RecentReviews = recent
	return nil
}

func (s *stubProductRepo) CreateDescription(ctx context.Context, description *models.ProductDescription) (*models.ProductDescription, error) {
	if description.ID == uuid.Nil {
		description.ID = uuid.New()
	}
	s.descriptions[description.ProductID] = description
	return description, nil
}

func (s *stubProductRepo) FindDescriptionByProduct(ctx context.Context, productID uuid.UUID) (*models.ProductDescription, error) {
	description, ok := s.descriptions[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return description, nil
}

func (s *stubProductRepo) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	s.variants[variant.ID] = variant
	return variant, nil
}

func (s *stubProductRepo) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := s.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *variant
	return &copied, nil
}

func (s *stubProductRepo) UpdateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	s.variants[variant.ID] = variant
	return variant, nil
}

func (s *stubProductRepo) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	delete(s.variants, id)
	return nil
}

func (s *stubProductRepo) SumVariantStock(ctx context.Context, productID uuid.UUID) (int, error) {
	total := 0
	for _, variant := range s.variants {
		if variant.ProductID == productID {
			total += variant.StockCount
		}
	}
	return total, nil
}

func (s *stubProductRepo) ReviewStats(ctx context.Context, productID uuid.UUID) (int, float64, error) {
	return 2, 4.5, nil
}

func (s *stubProductRepo) RecentReviewEntries(ctx context.Context, productID uuid.UUID) (types.RecentReviews, error) {
	return types.RecentReviews{{ReviewID: uuid.New(), RatingScore: 4.5}}, nil
}

func (s *stubProductRepo) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubProductRepo) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listResult != nil {
		return s.listResult, nil
	}
	return &ProductListResult{Products: []ProductDTO{}}, nil
}

type stubCategoryFinder struct {
	categories map[uuid.UUID]*models.ProductCategory
}

func (s *stubCategoryFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return category, nil
}

func newTestService(t *testing.T, repo *stubProductRepo, categories *stubCategoryFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:         stubTxRunner{},
		Repo:       repo,
		Categories: categories,
		RepoFactory: func(tx *gorm.DB) productRepository {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
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

func seedProduct(repo *stubProductRepo) *models.Product {
	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Speaker",
		Price:         decimal.NewFromInt(80),
		RecentReviews: types.RecentReviews{},
	}
	repo.products[product.ID] = product
	return product
}

func TestCreateProduct(t *testing.T) {
	repo := newStubProductRepo()
	categoryID := uuid.New()
	finder := &stubCategoryFinder{categories: map[uuid.UUID]*models.ProductCategory{
		categoryID: {ID: categoryID, Name: "Audio"},
	}}
	svc := newTestService(t, repo, finder)

	created, err := svc.Create(context.Background(), CreateProductInput{
		CategoryID: categoryID,
		Name:       "  Bluetooth Speaker  ",
		Price:      decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Bluetooth Speaker" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.RecentReviews == nil {
		t.Fatal("expected recent reviews to be initialized")
	}
}

func TestCreateProductValidation(t *testing.T) {
	repo := newStubProductRepo()
	categoryID := uuid.New()
	finder := &stubCategoryFinder{categories: map[uuid.UUID]*models.ProductCategory{
		categoryID: {ID: categoryID},
	}}
	svc := newTestService(t, repo, finder)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{CategoryID: categoryID, Name: ""})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateProductInput{
		CategoryID: categoryID,
		Name:       "Speaker",
		Price:      decimal.NewFromInt(-5),
	})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateProductInput{
		CategoryID:         categoryID,
		Name:               "Speaker",
		Price:              decimal.NewFromInt(5),
		DiscountPercentage: decimal.NewFromInt(150),
	})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateProductInput{CategoryID: uuid.New(), Name: "Speaker"})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddVariantUpdatesStockAggregate(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})
	product := seedProduct(repo)

	variant, err := svc.AddVariant(context.Background(), product.ID, CreateVariantInput{
		Price:      decimal.NewFromInt(85),
		StockCount: 6,
	})
	if err != nil {
		t.Fatalf("add variant: %v", err)
	}
	if variant.Images == nil {
		t.Fatal("expected images to be initialized")
	}
	if product.TotalStockCount != 6 {
		t.Fatalf("expected aggregate 6, got %d", product.TotalStockCount)
	}
}

func TestAddVariantMissingProduct(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})

	_, err := svc.AddVariant(context.Background(), uuid.New(), CreateVariantInput{
		Price: decimal.NewFromInt(10),
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateVariantAppliesStockDelta(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})
	product := seedProduct(repo)
	product.TotalStockCount = 10

	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Price:      decimal.NewFromInt(85),
		StockCount: 10,
	}
	repo.variants[variant.ID] = variant

	newStock := 4
	updated, err := svc.UpdateVariant(context.Background(), variant.ID, UpdateVariantInput{
		StockCount: &newStock,
	})
	if err != nil {
		t.Fatalf("update variant: %v", err)
	}
	if updated.StockCount != 4 {
		t.Fatalf("expected stock 4, got %d", updated.StockCount)
	}
	if product.TotalStockCount != 4 {
		t.Fatalf("expected aggregate 4, got %d", product.TotalStockCount)
	}
	if len(repo.stockDeltas) != 1 || repo.stockDeltas[0] != -6 {
		t.Fatalf("expected delta -6, got %v", repo.stockDeltas)
	}
}

func TestDeleteVariantReleasesStock(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})
	product := seedProduct(repo)
	product.TotalStockCount = 9

	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Price:      decimal.NewFromInt(85),
		StockCount: 9,
	}
	repo.variants[variant.ID] = variant

	if err := svc.DeleteVariant(context.Background(), variant.ID); err != nil {
		t.Fatalf("delete variant: %v", err)
	}
	if product.TotalStockCount != 0 {
		t.Fatalf("expected aggregate 0, got %d", product.TotalStockCount)
	}
	if _, ok := repo.variants[variant.ID]; ok {
		t.Fatal("expected variant to be removed")
	}
}

func TestAddDescriptionConflict(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})
	product := seedProduct(repo)
	ctx := context.Background()

	_, err := svc.AddDescription(ctx, product.ID, CreateDescriptionInput{
		LongDescription: "Portable speaker with a 12 hour battery.",
	})
	if err != nil {
		t.Fatalf("add description: %v", err)
	}

	_, err = svc.AddDescription(ctx, product.ID, CreateDescriptionInput{
		LongDescription: "Second copy.",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestRepairAggregatesRecomputesFromDetailRows(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})
	product := seedProduct(repo)
	product.TotalStockCount = 999
	product.TotalReviews = 999
	product.AverageRating = 1

	repo.variants[uuid.New()] = &models.ProductVariant{ProductID: product.ID, StockCount: 3}
	repo.variants[uuid.New()] = &models.ProductVariant{ProductID: product.ID, StockCount: 5}

	if err := svc.RepairAggregates(context.Background(), product.ID); err != nil {
		t.Fatalf("repair: %v", err)
	}
	if product.TotalStockCount != 8 {
		t.Fatalf("expected stock 8, got %d", product.TotalStockCount)
	}
	if product.TotalReviews != 2 || product.AverageRating != 4.5 {
		t.Fatalf("expected review stats 2/4.5, got %d/%f", product.TotalReviews, product.AverageRating)
	}
	if len(product.RecentReviews) != 1 {
		t.Fatalf("expected rebuilt recent cache, got %d entries", len(product.RecentReviews))
	}
}

func TestListValidatesPriceRange(t *testing.T) {
	repo := newStubProductRepo()
	svc := newTestService(t, repo, &stubCategoryFinder{})

	lower := decimal.NewFromInt(90)
	upper := decimal.NewFromInt(10)
	_, err := svc.List(context.Background(), ListProductsInput{
		Filters: ListFilters{PriceMin: &lower, PriceMax: &upper},
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}
