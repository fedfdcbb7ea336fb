package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/skawsh-sack/api/middleware"
	"github.com/angelmondragon/skawsh-sack/api/responses"
	"github.com/angelmondragon/skawsh-sack/api/validators"
	internalorders "github.com/angelmondragon/skawsh-sack/internal/orders"
	"github.com/angelmondragon/skawsh-sack/internal/session"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/pagination"
	"github.com/angelmondragon/skawsh-sack/pkg/types"
)

// orderView is an order as returned to the session that placed it.
type orderView struct {
	internalorders.Order
	ItemCount int `json:"item_count"`
}

func newOrderView(order internalorders.Order) orderView {
	return orderView{Order: order, ItemCount: len(order.Items)}
}

// Place turns the caller's sack into one order per studio.
func Place(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		couponCode := sess.Coupon().Code
		if payload.CouponCode != nil {
			couponCode = validators.SanitizeString(*payload.CouponCode, 32)
		}

		placed, err := svc.Place(r.Context(), sess.Store, internalorders.PlaceInput{
			SessionID:    sess.ID,
			StudioID:     strings.TrimSpace(payload.StudioID),
			Address:      payload.Address,
			Instructions: payload.Instructions,
			CouponCode:   couponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if sess.Store.UniqueServiceCount() == 0 && sess.Coupon().Code != "" {
			sess.SetCoupon(totals.Coupon{})
		}

		views := make([]orderView, 0, len(placed))
		for _, order := range placed {
			views = append(views, newOrderView(order))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placeOrderResponse{Orders: views})
	}
}

// List returns the session's order history, newest first, with cursor paging.
func List(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), sess.ID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderView, 0, len(list.Orders))
		for _, order := range list.Orders {
			views = append(views, newOrderView(order))
		}
		responses.WriteSuccessMeta(w, views, types.CursorMeta{NextCursor: list.NextCursor, Limit: limit})
	}
}

// Detail returns one order of the session.
func Detail(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), sess.ID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(*order))
	}
}

// Cancel moves a pre-completion order to cancelled.
func Cancel(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, (*internalorders.Service).Cancel)
}

// Advance moves an order one step along its lifecycle.
func Advance(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, (*internalorders.Service).Advance)
}

// Delete removes an order from the session's history.
func Delete(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), sess.ID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "id": orderID})
	}
}

type transitionFunc func(*internalorders.Service, context.Context, string, uuid.UUID) (*internalorders.Order, error)

func transition(svc *internalorders.Service, logg *logger.Logger, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := apply(svc, r.Context(), sess.ID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(*order))
	}
}

func sessionFromRequest(r *http.Request) (*session.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sack session missing")
	}
	return sess, nil
}
