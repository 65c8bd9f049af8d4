package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// Product is the canonical catalog listing. TotalStockCount, TotalReviews,
// AverageRating, and RecentReviews are derived aggregates maintained by the
// write path; RepairProductAggregates can re-derive them from detail rows.
type Product struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID         uuid.UUID           `gorm:"column:category_id;type:uuid;not null"`
	Name               string              `gorm:"column:name;not null"`
	Brand              *string             `gorm:"column:brand"`
	Thumbnail          *string             `gorm:"column:thumbnail"`
	ShortDescription   *string             `gorm:"column:short_description"`
	Price              decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercentage decimal.Decimal     `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	TotalStockCount    int                 `gorm:"column:total_stock_count;not null;default:0"`
	TotalReviews       int                 `gorm:"column:total_reviews;not null;default:0"`
	AverageRating      float64             `gorm:"column:average_rating;type:numeric(4,2);not null;default:0"`
	RecentReviews      types.RecentReviews `gorm:"column:recent_reviews;type:jsonb"`
	Description        *ProductDescription `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants           []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
