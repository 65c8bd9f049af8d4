package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.ProductDescription{},
		&models.ProductVariant{},
		&models.ProductReview{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM product_reviews")
		conn.Exec("DELETE FROM product_variants")
		conn.Exec("DELETE FROM product_descriptions")
		conn.Exec("DELETE FROM products")
	})
	return conn
}

func mustCreateProduct(t *testing.T, repo *Repository, name string, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    uuid.New(),
		Name:          name,
		Price:         decimal.NewFromInt(100),
		RecentReviews: types.RecentReviews{},
		CreatedAt:     createdAt,
	}
	if _, err := repo.CreateProduct(context.Background(), product); err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func mustCreateVariant(t *testing.T, repo *Repository, productID uuid.UUID, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Price:      decimal.NewFromInt(100),
		StockCount: stock,
	}
	if _, err := repo.CreateVariant(context.Background(), variant); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}

func TestIncrementTotalStock(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	product := mustCreateProduct(t, repo, "Monitor", time.Now().UTC())

	affected, err := repo.IncrementTotalStock(ctx, product.ID, 7)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected one row affected, got %d", affected)
	}

	affected, err = repo.IncrementTotalStock(ctx, product.ID, -3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected one row affected, got %d", affected)
	}

	reloaded, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalStockCount != 4 {
		t.Fatalf("expected total stock 4, got %d", reloaded.TotalStockCount)
	}
}

func TestIncrementTotalStockMissingProduct(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	affected, err := repo.IncrementTotalStock(context.Background(), uuid.New(), 5)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected zero rows affected, got %d", affected)
	}
}

func TestSumVariantStock(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	product := mustCreateProduct(t, repo, "Keyboard", time.Now().UTC())
	mustCreateVariant(t, repo, product.ID, 3)
	mustCreateVariant(t, repo, product.ID, 9)

	total, err := repo.SumVariantStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("sum stock: %v", err)
	}
	if total != 12 {
		t.Fatalf("expected 12, got %d", total)
	}

	empty, err := repo.SumVariantStock(ctx, uuid.New())
	if err != nil {
		t.Fatalf("sum stock for empty product: %v", err)
	}
	if empty != 0 {
		t.Fatalf("expected zero for product without variants, got %d", empty)
	}
}

func TestReviewStatsAndRecentEntries(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateProduct(t, repo, "Headphones", time.Now().UTC())
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	ratings := []float64{2, 3, 4, 5}
	for i, rating := range ratings {
		comment := "ok"
		review := &models.ProductReview{
			ID:          uuid.New(),
			ProductID:   product.ID,
			UserID:      uuid.New(),
			RatingScore: rating,
			Comment:     &comment,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := conn.Create(review).Error; err != nil {
			t.Fatalf("create review: %v", err)
		}
	}

	count, average, err := repo.ReviewStats(ctx, product.ID)
	if err != nil {
		t.Fatalf("review stats: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 reviews, got %d", count)
	}
	if average != 3.5 {
		t.Fatalf("expected average 3.5, got %f", average)
	}

	recent, err := repo.RecentReviewEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("recent entries: %v", err)
	}
	if len(recent) != types.RecentReviewLimit {
		t.Fatalf("expected %d cached entries, got %d", types.RecentReviewLimit, len(recent))
	}
	if recent[0].RatingScore != 5 {
		t.Fatalf("expected newest review first, got rating %f", recent[0].RatingScore)
	}
}

func TestListProductsCursorPagination(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	for i, name := range names {
		mustCreateProduct(t, repo, name, base.Add(time.Duration(i)*time.Minute))
	}

	firstPage, err := repo.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 2},
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(firstPage.Products) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(firstPage.Products))
	}
	if firstPage.Products[0].Name != "Echo" || firstPage.Products[1].Name != "Delta" {
		t.Fatalf("expected newest first, got %s,%s", firstPage.Products[0].Name, firstPage.Products[1].Name)
	}
	if firstPage.NextCursor == "" {
		t.Fatal("expected next cursor on a partial page")
	}

	secondPage, err := repo.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 2, Cursor: firstPage.NextCursor},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if secondPage.Products[0].Name != "Charlie" || secondPage.Products[1].Name != "Bravo" {
		t.Fatalf("expected continuation, got %s,%s", secondPage.Products[0].Name, secondPage.Products[1].Name)
	}

	thirdPage, err := repo.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 2, Cursor: secondPage.NextCursor},
	})
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(thirdPage.Products) != 1 || thirdPage.Products[0].Name != "Alpha" {
		t.Fatalf("expected trailing page with Alpha, got %+v", thirdPage.Products)
	}
	if thirdPage.NextCursor != "" {
		t.Fatalf("expected empty cursor on final page, got %q", thirdPage.NextCursor)
	}
}

func TestListProductsFilters(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	categoryID := uuid.New()
	brand := "Acme"

	inCategory := &models.Product{
		ID:            uuid.New(),
		CategoryID:    categoryID,
		Name:          "Gaming Mouse",
		Brand:         &brand,
		Price:         decimal.NewFromInt(40),
		RecentReviews: types.RecentReviews{},
		CreatedAt:     base,
	}
	if _, err := repo.CreateProduct(ctx, inCategory); err != nil {
		t.Fatalf("create product: %v", err)
	}
	mustCreateProduct(t, repo, "Desk Lamp", base.Add(time.Minute))

	byCategory, err := repo.ListProducts(ctx, ListProductsInput{
		Filters: ListFilters{CategoryID: &categoryID},
	})
	if err != nil {
		t.Fatalf("filter by category: %v", err)
	}
	if len(byCategory.Products) != 1 || byCategory.Products[0].ID != inCategory.ID {
		t.Fatalf("expected only the category match, got %+v", byCategory.Products)
	}

	priceMax := decimal.NewFromInt(50)
	byPrice, err := repo.ListProducts(ctx, ListProductsInput{
		Filters: ListFilters{PriceMax: &priceMax},
	})
	if err != nil {
		t.Fatalf("filter by price: %v", err)
	}
	if len(byPrice.Products) != 1 || byPrice.Products[0].Name != "Gaming Mouse" {
		t.Fatalf("expected the cheap product, got %+v", byPrice.Products)
	}

	bySearch, err := repo.ListProducts(ctx, ListProductsInput{
		Filters: ListFilters{Query: "gaming"},
	})
	if err != nil {
		t.Fatalf("filter by search: %v", err)
	}
	if len(bySearch.Products) != 1 || bySearch.Products[0].Name != "Gaming Mouse" {
		t.Fatalf("expected the search match, got %+v", bySearch.Products)
	}
}

func TestFindDetailPreloadsAssociations(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	product := mustCreateProduct(t, repo, "Camera", time.Now().UTC())
	if _, err := repo.CreateDescription(ctx, &models.ProductDescription{
		ID:              uuid.New(),
		ProductID:       product.ID,
		LongDescription: "Mirrorless body with a kit lens.",
	}); err != nil {
		t.Fatalf("create description: %v", err)
	}
	mustCreateVariant(t, repo, product.ID, 2)
	mustCreateVariant(t, repo, product.ID, 4)

	detail, err := repo.FindDetailByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find detail: %v", err)
	}
	if detail.Description == nil {
		t.Fatal("expected description to be preloaded")
	}
	if len(detail.Variants) != 2 {
		t.Fatalf("expected two variants, got %d", len(detail.Variants))
	}
}
