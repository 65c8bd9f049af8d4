package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
)

// CartItemDTO is one merged line in a cart.
type CartItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartDTO is the transport shape of a user's open cart.
type CartDTO struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Items     []CartItemDTO `json:"items"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// AddItemInput holds the payload to add a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// UpdateItemInput sets an absolute quantity on an existing line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func FromModel(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	return &CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}
