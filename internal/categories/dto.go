package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
)

// CategoryDTO is the transport shape of a single category node.
type CategoryDTO struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Description      *string    `json:"description,omitempty"`
	ParentCategoryID *uuid.UUID `json:"parent_category_id,omitempty"`
	CategoryPath     string     `json:"category_path"`
	Level            int        `json:"level"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TreeNodeDTO is a category with its recursively nested children.
type TreeNodeDTO struct {
	CategoryDTO
	Children []*TreeNodeDTO `json:"children"`
}

// CreateCategoryDTO holds the data needed to insert a category.
type CreateCategoryDTO struct {
	Name             string     `json:"name" validate:"required"`
	Description      *string    `json:"description,omitempty"`
	ParentCategoryID *uuid.UUID `json:"parent_category_id,omitempty"`
}

func FromModel(c *models.ProductCategory) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		ParentCategoryID: c.ParentCategoryID,
		CategoryPath:     c.CategoryPath,
		Level:            c.Level,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
