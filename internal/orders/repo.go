package orders

import (
	"context"

	"github.com/angelmondragon/skawsh-sack/pkg/db"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, sessionID string, id uuid.UUID) (*Order, error)
	List(ctx context.Context, sessionID string, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, order *Order, status enums.OrderStatus) error
	Delete(ctx context.Context, sessionID string, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, sessionID string, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		Take(&order).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, sessionID string, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page, next := pagination.Page(rows, params.Limit, func(o Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &OrderList{Orders: page, NextCursor: next}, nil
}

func (r *repository) UpdateStatus(ctx context.Context, order *Order, status enums.OrderStatus) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": order.UpdatedAt,
	}
	if order.CancelledAt != nil {
		updates["cancelled_at"] = order.CancelledAt
	}
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND session_id = ? AND status = ?", order.ID, order.SessionID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "order %s changed concurrently", order.ID)
	}
	order.Status = status
	return nil
}

func (r *repository) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).Delete(&Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", id)
	}
	return nil
}
