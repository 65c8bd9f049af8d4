package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/cartly-backend/pkg/enums"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// Order is an immutable purchase record. Line items carry price snapshots
// captured at creation time; later catalog changes never alter them.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'Pending'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	DeliveredDate   *time.Time        `gorm:"column:delivered_date"`
	ShippingAddress types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Items           []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
