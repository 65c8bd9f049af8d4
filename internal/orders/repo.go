package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	"github.com/arjunmehta/cartly-backend/pkg/pagination"
)

// Repository handles order persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts an order with its line items in one statement.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its lines.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus persists a status change and the optional delivery stamp.
func (r *Repository) UpdateStatus(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumns(map[string]any{
			"status":         order.Status,
			"delivered_date": order.DeliveredDate,
		}).Error
}

// ListByUser returns one page of the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Where("user_id = ?", input.UserID)

	filter := input.Filters
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		qb = qb.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		qb = qb.Where("created_at <= ?", *filter.To)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out := make([]OrderDTO, 0, len(resultRows))
	for i := range resultRows {
		out = append(out, *FromModel(&resultRows[i]))
	}

	return &OrderListResult{
		Orders:     out,
		NextCursor: nextCursor,
	}, nil
}
