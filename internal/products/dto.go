package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// ProductDTO is the transport shape of a catalog listing.
type ProductDTO struct {
	ID                 uuid.UUID             `json:"id"`
	CategoryID         uuid.UUID             `json:"category_id"`
	Name               string                `json:"name"`
	Brand              *string               `json:"brand,omitempty"`
	Thumbnail          *string               `json:"thumbnail,omitempty"`
	ShortDescription   *string               `json:"short_description,omitempty"`
	Price              decimal.Decimal       `json:"price"`
	DiscountPercentage decimal.Decimal       `json:"discount_percentage"`
	TotalStockCount    int                   `json:"total_stock_count"`
	TotalReviews       int                   `json:"total_reviews"`
	AverageRating      float64               `json:"average_rating"`
	RecentReviews      types.RecentReviews   `json:"recent_reviews"`
	Description        *DescriptionDTO       `json:"description,omitempty"`
	Variants           []VariantDTO          `json:"variants,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// DescriptionDTO carries the long-form product copy.
type DescriptionDTO struct {
	ID                  uuid.UUID            `json:"id"`
	ProductID           uuid.UUID            `json:"product_id"`
	LongDescription     string               `json:"long_description"`
	Specifications      types.Specifications `json:"specifications,omitempty"`
	WarrantyPeriodYears *int                 `json:"warranty_period_years,omitempty"`
	WarrantyDetails     *string              `json:"warranty_details,omitempty"`
	ReturnPolicy        *string              `json:"return_policy,omitempty"`
}

// VariantDTO is a purchasable variation of a product.
type VariantDTO struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Color      *string         `json:"color,omitempty"`
	Size       *string         `json:"size,omitempty"`
	Price      decimal.Decimal `json:"price"`
	StockCount int             `json:"stock_count"`
	Images     []string        `json:"images"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	CategoryID         uuid.UUID       `json:"category_id" validate:"required"`
	Name               string          `json:"name" validate:"required"`
	Brand              *string         `json:"brand,omitempty"`
	Thumbnail          *string         `json:"thumbnail,omitempty"`
	ShortDescription   *string         `json:"short_description,omitempty"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// CreateDescriptionInput holds the long-form copy payload.
type CreateDescriptionInput struct {
	LongDescription     string               `json:"long_description" validate:"required"`
	Specifications      types.Specifications `json:"specifications,omitempty"`
	WarrantyPeriodYears *int                 `json:"warranty_period_years,omitempty"`
	WarrantyDetails     *string              `json:"warranty_details,omitempty"`
	ReturnPolicy        *string              `json:"return_policy,omitempty"`
}

// CreateVariantInput holds the payload to add a variant.
type CreateVariantInput struct {
	Color      *string         `json:"color,omitempty"`
	Size       *string         `json:"size,omitempty"`
	Price      decimal.Decimal `json:"price"`
	StockCount int             `json:"stock_count" validate:"gte=0"`
	Images     []string        `json:"images,omitempty"`
}

// UpdateVariantInput holds optional variant mutation values.
type UpdateVariantInput struct {
	Color      *string          `json:"color,omitempty"`
	Size       *string          `json:"size,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	StockCount *int             `json:"stock_count,omitempty" validate:"omitempty,gte=0"`
	Images     *[]string        `json:"images,omitempty"`
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	Brand      *string          `json:"brand,omitempty"`
	PriceMin   *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax   *decimal.Decimal `json:"price_max,omitempty"`
	Query      string           `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
type ListProductsInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ProductListResult is one page of catalog listings plus the next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:                 p.ID,
		CategoryID:         p.CategoryID,
		Name:               p.Name,
		Brand:              p.Brand,
		Thumbnail:          p.Thumbnail,
		ShortDescription:   p.ShortDescription,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		TotalStockCount:    p.TotalStockCount,
		TotalReviews:       p.TotalReviews,
		AverageRating:      p.AverageRating,
		RecentReviews:      p.RecentReviews,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if dto.RecentReviews == nil {
		dto.RecentReviews = types.RecentReviews{}
	}
	if p.Description != nil {
		dto.Description = descriptionFromModel(p.Description)
	}
	for i := range p.Variants {
		dto.Variants = append(dto.Variants, *variantFromModel(&p.Variants[i]))
	}
	return dto
}

func descriptionFromModel(d *models.ProductDescription) *DescriptionDTO {
	return &DescriptionDTO{
		ID:                  d.ID,
		ProductID:           d.ProductID,
		LongDescription:     d.LongDescription,
		Specifications:      d.Specifications,
		WarrantyPeriodYears: d.WarrantyPeriodYears,
		WarrantyDetails:     d.WarrantyDetails,
		ReturnPolicy:        d.ReturnPolicy,
	}
}

func variantFromModel(v *models.ProductVariant) *VariantDTO {
	images := []string(v.Images)
	if images == nil {
		images = []string{}
	}
	return &VariantDTO{
		ID:         v.ID,
		ProductID:  v.ProductID,
		Color:      v.Color,
		Size:       v.Size,
		Price:      v.Price,
		StockCount: v.StockCount,
		Images:     images,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}
