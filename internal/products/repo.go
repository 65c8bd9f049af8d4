package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// Repository wires together all catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetailByID loads the product with its description and variants.
func (r *Repository) FindDetailByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Description").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByID loads the product row under FOR UPDATE so aggregate math is serialized.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products matching the provided IDs.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteProduct removes the product row; dependent rows cascade in the schema.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// IncrementTotalStock applies a signed atomic delta to total_stock_count.
// It returns the number of product rows touched so callers can detect a
// missing owner.
func (r *Repository) IncrementTotalStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	if delta == 0 {
		return 1, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("total_stock_count", gorm.Expr("total_stock_count + ?", delta))
	return result.RowsAffected, result.Error
}

// UpdateAggregates overwrites the derived columns on the product row.
func (r *Repository) UpdateAggregates(ctx context.Context, productID uuid.UUID, totalStock, totalReviews int, averageRating float64, recent types.RecentReviews) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"total_stock_count": totalStock,
			"total_reviews":     totalReviews,
			"average_rating":    averageRating,
			"recent_reviews":    recent,
		}).Error
}

// UpdateReviewAggregates overwrites only the review-derived columns.
func (r *Repository) UpdateReviewAggregates(ctx context.Context, productID uuid.UUID, totalReviews int, averageRating float64, recent types.RecentReviews) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"total_reviews":  totalReviews,
			"average_rating": averageRating,
			"recent_reviews": recent,
		}).Error
}

// CreateDescription inserts the long-form copy row.
func (r *Repository) CreateDescription(ctx context.Context, description *models.ProductDescription) (*models.ProductDescription, error) {
	if err := r.db.WithContext(ctx).Create(description).Error; err != nil {
		return nil, err
	}
	return description, nil
}

// FindDescriptionByProduct loads the description for a product.
func (r *Repository) FindDescriptionByProduct(ctx context.Context, productID uuid.UUID) (*models.ProductDescription, error) {
	var description models.ProductDescription
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&description).Error; err != nil {
		return nil, err
	}
	return &description, nil
}

// CreateVariant inserts a variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindVariantByID loads a single variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// UpdateVariant saves the provided variant row.
func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Save(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// DeleteVariant removes a variant row.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductVariant{}, "id = ?", id).Error
}

// ListVariants returns the variants of a product in creation order.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumVariantStock recomputes the stock total from variant rows.
func (r *Repository) SumVariantStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var total *int
	if err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ?", productID).
		Select("SUM(stock_count)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ReviewStats recomputes review count and mean rating from live review rows.
func (r *Repository) ReviewStats(ctx context.Context, productID uuid.UUID) (int, float64, error) {
	var stats struct {
		Count   int
		Average *float64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Where("product_id = ?", productID).
		Select("COUNT(*) AS count, AVG(rating_score) AS average").
		Scan(&stats).Error; err != nil {
		return 0, 0, err
	}
	average := 0.0
	if stats.Average != nil {
		average = *stats.Average
	}
	return stats.Count, average, nil
}

// RecentReviewEntries rebuilds the denormalized review cache from live rows.
func (r *Repository) RecentReviewEntries(ctx context.Context, productID uuid.UUID) (types.RecentReviews, error) {
	var rows []models.ProductReview
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(types.RecentReviewLimit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(types.RecentReviews, 0, len(rows))
	for _, row := range rows {
		comment := ""
		if row.Comment != nil {
			comment = *row.Comment
		}
		out = append(out, types.RecentReview{
			UserID:      row.UserID,
			ReviewID:    row.ID,
			RatingScore: row.RatingScore,
			Comment:     comment,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

// ListProductIDs returns every product ID, oldest first. Used by repair jobs.
func (r *Repository) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListProducts returns one page of catalog rows, newest first.
func (r *Repository) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})

	filter := input.Filters
	if filter.CategoryID != nil {
		qb = qb.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Brand != nil {
		qb = qb.Where("brand = ?", *filter.Brand)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("price <= ?", *filter.PriceMax)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out := make([]ProductDTO, 0, len(resultRows))
	for i := range resultRows {
		out = append(out, *FromModel(&resultRows[i]))
	}

	return &ProductListResult{
		Products:   out,
		NextCursor: nextCursor,
	}, nil
}
