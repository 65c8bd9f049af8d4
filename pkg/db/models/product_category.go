package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductCategory is one node of the category tree. ParentCategoryID is nil
// for roots; CategoryPath is the normalized (lowercased) unique key.
type ProductCategory struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string     `gorm:"column:name;not null"`
	Description      *string    `gorm:"column:description"`
	ParentCategoryID *uuid.UUID `gorm:"column:parent_category_id;type:uuid;index"`
	CategoryPath     string     `gorm:"column:category_path;not null;uniqueIndex"`
	Level            int        `gorm:"column:level;not null;default:0"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
