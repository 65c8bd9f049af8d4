package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductReview is a user's rating of a product. Creating or deleting one
// updates the owning product's review aggregates and recent-review cache.
type ProductReview struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	RatingScore float64   `gorm:"column:rating_score;type:numeric(4,2);not null"`
	Comment     *string   `gorm:"column:comment"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
