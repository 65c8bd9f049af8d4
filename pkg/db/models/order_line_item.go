package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem snapshots pricing for one ordered product.
type OrderLineItem struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID              uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	UnitPriceAtPurchase    decimal.Decimal `gorm:"column:unit_price_at_purchase;type:numeric(12,2);not null"`
	DiscountAtPurchase     decimal.Decimal `gorm:"column:discount_at_purchase;type:numeric(5,2);not null;default:0"`
	UnitPriceAfterDiscount decimal.Decimal `gorm:"column:unit_price_after_discount;type:numeric(12,2);not null"`
	Quantity               int             `gorm:"column:quantity;not null;default:1"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
