package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
)

// ReviewDTO is the transport shape of a product review.
type ReviewDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	UserID      uuid.UUID `json:"user_id"`
	RatingScore float64   `json:"rating_score"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateReviewInput holds the validated payload to post a review.
type CreateReviewInput struct {
	RatingScore float64 `json:"rating_score" validate:"gte=0,lte=5"`
	Comment     *string `json:"comment,omitempty"`
}

// ListReviewsInput captures list inputs for one product's reviews.
type ListReviewsInput struct {
	ProductID  uuid.UUID
	Pagination pagination.Params
}

// ReviewListResult is one page of reviews plus the next cursor.
type ReviewListResult struct {
	Reviews    []ReviewDTO `json:"reviews"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func FromModel(review *models.ProductReview) *ReviewDTO {
	if review == nil {
		return nil
	}
	return &ReviewDTO{
		ID:          review.ID,
		ProductID:   review.ProductID,
		UserID:      review.UserID,
		RatingScore: review.RatingScore,
		Comment:     review.Comment,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
	}
}
