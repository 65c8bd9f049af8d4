package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// ProductDescription holds the long-form copy split off the hot product row.
type ProductDescription struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	LongDescription     string               `gorm:"column:long_description"`
	Specifications      types.Specifications `gorm:"column:specifications;type:jsonb"`
	WarrantyPeriodYears *int                 `gorm:"column:warranty_period_years"`
	WarrantyDetails     *string              `gorm:"column:warranty_details"`
	ReturnPolicy        *string              `gorm:"column:return_policy"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
