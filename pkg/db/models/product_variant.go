package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductVariant is one purchasable variation of a product. Its StockCount
// feeds the owning product's total_stock_count aggregate.
type ProductVariant struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Color      *string         `gorm:"column:color"`
	Size       *string         `gorm:"column:size"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockCount int             `gorm:"column:stock_count;not null;default:0"`
	Images     pq.StringArray  `gorm:"column:images;type:text[]"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
