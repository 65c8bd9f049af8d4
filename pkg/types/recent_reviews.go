package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RecentReviewLimit bounds the denormalized review cache on a product row.
const RecentReviewLimit = 3

// RecentReview is one cached projection of a live review.
type RecentReview struct {
	UserID      uuid.UUID `json:"user_id"`
	ReviewID    uuid.UUID `json:"review_id"`
	RatingScore float64   `json:"rating_score"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecentReviews is the bounded, newest-first cache persisted as JSONB.
type RecentReviews []RecentReview

// Push prepends an entry, re-sorts newest first, and truncates to the limit.
func (r RecentReviews) Push(entry RecentReview) RecentReviews {
	next := append(RecentReviews{entry}, r...)
	if len(next) > RecentReviewLimit {
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].CreatedAt.After(next[j].CreatedAt)
		})
		next = next[:RecentReviewLimit]
	}
	return next
}

// Remove drops the entry matching reviewID, if present.
func (r RecentReviews) Remove(reviewID uuid.UUID) RecentReviews {
	out := make(RecentReviews, 0, len(r))
	for _, entry := range r {
		if entry.ReviewID == reviewID {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Value marshals the cache into JSON for Postgres.
func (r RecentReviews) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the cache.
func (r *RecentReviews) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("recent_reviews: unsupported scan type %T", value)
	}

	result := make(RecentReviews, 0, RecentReviewLimit)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*r = result
	return nil
}
