package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
	"github.com/angelmondragon/skawsh-sack/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Sack is the part of the sack store order placement reads and clears.
type Sack interface {
	Items() []sack.LineItem
	Remove(ctx context.Context, serviceID string) error
}

// CouponResolver turns a coupon code into a discount.
type CouponResolver interface {
	Apply(code string) (totals.Coupon, error)
}

// Service owns order history for every session.
type Service struct {
	repo    Repository
	tx      txRunner
	agg     *totals.Aggregator
	coupons CouponResolver
	logg    *logger.Logger
	metrics *metrics.SackMetrics
	now     func() time.Time
}

// ServiceParams wires a Service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Aggregator *totals.Aggregator
	Coupons    CouponResolver
	Logger     *logger.Logger
	Metrics    *metrics.SackMetrics
	Now        func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Aggregator == nil {
		return nil, fmt.Errorf("totals aggregator required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon resolver required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Service{
		repo:    p.Repo,
		tx:      p.Tx,
		agg:     p.Aggregator,
		coupons: p.Coupons,
		logg:    p.Logger,
		metrics: p.Metrics,
		now:     p.Now,
	}, nil
}

// Place snapshots the sack into one order per studio, persists them in a single
// transaction and then removes the placed lines from the sack.
func (s *Service) Place(ctx context.Context, sk Sack, input PlaceInput) ([]Order, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := input.Address.Validate(); err != nil {
		return nil, err
	}
	coupon, err := s.coupons.Apply(input.CouponCode)
	if err != nil {
		return nil, err
	}

	items := sk.Items()
	if input.StudioID != "" {
		scoped := make([]sack.LineItem, 0, len(items))
		for _, item := range items {
			if item.StudioID == input.StudioID {
				scoped = append(scoped, item)
			}
		}
		items = scoped
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sack is empty")
	}

	instructions := trimmedOrNil(input.Instructions)
	now := s.now().UTC()
	groups := totals.GroupByStudio(items)
	placed := make([]Order, 0, len(groups))
	for _, group := range groups {
		summary := s.agg.Aggregate(group.Items, coupon)
		placed = append(placed, Order{
			ID:           uuid.New(),
			SessionID:    input.SessionID,
			StudioID:     group.StudioID,
			StudioName:   group.StudioName,
			Status:       enums.OrderStatusPendingPayment,
			Items:        group.Items,
			Subtotal:     summary.Subtotal,
			DeliveryFee:  summary.DeliveryFee,
			Tax:          summary.Tax,
			Discount:     summary.Discount,
			Total:        summary.Total,
			CouponCode:   summary.CouponCode,
			Address:      input.Address,
			Instructions: instructions,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range placed {
			if err := repo.Create(ctx, &placed[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting orders")
	}

	for _, order := range placed {
		s.metrics.IncOrder(string(order.Status))
		orderCtx := s.logg.WithStudioID(ctx, order.StudioID)
		s.logg.Info(s.logg.WithFields(orderCtx, map[string]any{
			"order_id": order.ID.String(),
			"total":    order.Total.String(),
		}), "orders.placed")
	}

	s.clearPlaced(ctx, sk, items)
	return placed, nil
}

// clearPlaced removes the lines that were ordered. Lines added after the
// snapshot stay in the sack. Storage failures are logged; the orders already
// exist.
func (s *Service) clearPlaced(ctx context.Context, sk Sack, items []sack.LineItem) {
	for _, item := range items {
		err := sk.Remove(ctx, item.ServiceID)
		if err == nil || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			continue
		}
		s.logg.Error(s.logg.WithServiceID(ctx, item.ServiceID), "orders.clear_sack_failed", err)
	}
}

func (s *Service) Get(ctx context.Context, sessionID string, id uuid.UUID) (*Order, error) {
	return s.repo.Find(ctx, sessionID, id)
}

func (s *Service) List(ctx context.Context, sessionID string, params pagination.Params) (*OrderList, error) {
	return s.repo.List(ctx, sessionID, params)
}

// Cancel moves a pre-completion order to cancelled.
func (s *Service) Cancel(ctx context.Context, sessionID string, id uuid.UUID) (*Order, error) {
	return s.transition(ctx, sessionID, id, func(current enums.OrderStatus) (enums.OrderStatus, bool) {
		return enums.OrderStatusCancelled, current.CanTransitionTo(enums.OrderStatusCancelled)
	})
}

// Advance moves an order one step forward: pending_payment, processing, completed.
func (s *Service) Advance(ctx context.Context, sessionID string, id uuid.UUID) (*Order, error) {
	return s.transition(ctx, sessionID, id, func(current enums.OrderStatus) (enums.OrderStatus, bool) {
		return current.Next()
	})
}

// Delete removes an order from the session's history.
func (s *Service) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, sessionID, id); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", id.String()), "orders.deleted")
	return nil
}

func (s *Service) transition(ctx context.Context, sessionID string, id uuid.UUID, next func(enums.OrderStatus) (enums.OrderStatus, bool)) (*Order, error) {
	var updated *Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, sessionID, id)
		if err != nil {
			return err
		}
		target, ok := next(order.Status)
		if !ok || !order.Status.CanTransitionTo(target) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status).
				WithDetails(map[string]any{"status": order.Status})
		}

		now := s.now().UTC()
		order.UpdatedAt = now
		if target == enums.OrderStatusCancelled {
			order.CancelledAt = &now
		}
		if err := repo.UpdateStatus(ctx, order, target); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order")
		}
		return nil, err
	}

	s.metrics.IncOrder(string(updated.Status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": updated.ID.String(),
		"status":   string(updated.Status),
	}), "orders.status_changed")
	return updated, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
