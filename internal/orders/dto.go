package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/enums"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
	"github.com/arjunmehta/cartly-backend/pkg/types"
)

// LineItemDTO is one priced line of an order.
type LineItemDTO struct {
	ID                     uuid.UUID       `json:"id"`
	ProductID              uuid.UUID       `json:"product_id"`
	UnitPriceAtPurchase    decimal.Decimal `json:"unit_price_at_purchase"`
	DiscountAtPurchase     decimal.Decimal `json:"discount_at_purchase"`
	UnitPriceAfterDiscount decimal.Decimal `json:"unit_price_after_discount"`
	Quantity               int             `json:"quantity"`
}

// OrderDTO is the transport shape of an order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          enums.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	DeliveredDate   *time.Time        `json:"delivered_date,omitempty"`
	ShippingAddress types.Address     `json:"shipping_address"`
	Items           []LineItemDTO     `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CreateLineInput is one requested product and quantity.
type CreateLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// CreateOrderInput holds the validated payload to place an order.
type CreateOrderInput struct {
	Items           []CreateLineInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address     `json:"shipping_address"`
}

// ListFilters narrows the order history query.
type ListFilters struct {
	Status *enums.OrderStatus
	From   *time.Time
	To     *time.Time
}

// ListOrdersInput captures the inputs for one page of a user's orders.
type ListOrdersInput struct {
	UserID     uuid.UUID
	Filters    ListFilters
	Pagination pagination.Params
}

// OrderListResult is one page of orders plus the next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ID:                     item.ID,
			ProductID:              item.ProductID,
			UnitPriceAtPurchase:    item.UnitPriceAtPurchase,
			DiscountAtPurchase:     item.DiscountAtPurchase,
			UnitPriceAfterDiscount: item.UnitPriceAfterDiscount,
			Quantity:               item.Quantity,
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		DeliveredDate:   order.DeliveredDate,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
