package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
)

// Repository exposes persistence operations for the category tree.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a categories repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new category node.
func (r *Repository) Create(ctx context.Context, category *models.ProductCategory) (*models.ProductCategory, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindByID loads a category by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	var category models.ProductCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByPath loads a category by its normalized path.
func (r *Repository) FindByPath(ctx context.Context, path string) (*models.ProductCategory, error) {
	var category models.ProductCategory
	if err := r.db.WithContext(ctx).Where("category_path = ?", path).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListChildren returns direct children of the given parent in creation order.
func (r *Repository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.ProductCategory, error) {
	var rows []models.ProductCategory
	if err := r.db.WithContext(ctx).
		Where("parent_category_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRoots returns top-level categories in creation order.
func (r *Repository) ListRoots(ctx context.Context) ([]models.ProductCategory, error) {
	var rows []models.ProductCategory
	if err := r.db.WithContext(ctx).
		Where("parent_category_id IS NULL").
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns categories filtered by level and/or parent.
func (r *Repository) List(ctx context.Context, level *int, parentID *uuid.UUID) ([]models.ProductCategory, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductCategory{})
	if level != nil {
		query = query.Where("level = ?", *level)
	}
	if parentID != nil {
		query = query.Where("parent_category_id = ?", *parentID)
	}
	var rows []models.ProductCategory
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a single category row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductCategory{}, "id = ?", id).Error
}
