package sack

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/skawsh-sack/api/controllers/sack/dto"
	"github.com/angelmondragon/skawsh-sack/api/middleware"
	"github.com/angelmondragon/skawsh-sack/api/responses"
	"github.com/angelmondragon/skawsh-sack/api/validators"
	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	"github.com/angelmondragon/skawsh-sack/internal/reconcile"
	"github.com/angelmondragon/skawsh-sack/internal/session"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
)

// Fetch returns the caller's sack with its totals and reconciler state.
func Fetch(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSackView(sess, agg))
	}
}

// Bar returns the floating bar summary, optionally scoped by ?studio_id=.
func Bar(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		studioID := strings.TrimSpace(r.URL.Query().Get("studio_id"))
		responses.WriteSuccess(w, sess.Store.Bar(studioID))
	}
}

// AddItem routes the request through the reconciler. A held conflict answers
// 202 with the pending decision and leaves the sack untouched.
func AddItem(cat catalog.Catalog, agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := toInput(r.Context(), cat, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := sess.Reconciler.Request(r.Context(), reconcile.AddRequest{Input: input})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if outcome.Conflict != nil {
			responses.WriteSuccessStatus(w, http.StatusAccepted, newAddItemResponse(sess, agg, outcome, false))
			return
		}
		celebrate := outcome.Applied && sess.Store.ConsumeFirstItemCelebration(r.Context())
		responses.WriteSuccess(w, newAddItemResponse(sess, agg, outcome, celebrate))
	}
}

// Step increments or decrements a line by whole units.
func Step(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, serviceID, err := sessionAndService(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.StepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := sess.Store.Step(r.Context(), serviceID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemResponse(sess, agg, item, item == nil))
	}
}

// UpdateSubItems replaces the garment breakdown of a line.
func UpdateSubItems(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, serviceID, err := sessionAndService(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.SubItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := sess.Store.UpdateSubItems(r.Context(), serviceID, toSubItems(payload.SubItems))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemResponse(sess, agg, item, false))
	}
}

// RemoveItem deletes one line. Removing an absent service is not an error.
func RemoveItem(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, serviceID, err := sessionAndService(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, existed := sess.Store.Get(serviceID)
		if err := sess.Store.Remove(r.Context(), serviceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemResponse(sess, agg, nil, existed))
	}
}

// Clear empties the sack for every studio.
func Clear(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sess.Store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSackView(sess, agg))
	}
}

// SetFulfillment switches the active wash tab used for new services.
func SetFulfillment(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.FulfillmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Reconciler.Select(enums.FulfillmentType(payload.Fulfillment)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSackView(sess, agg))
	}
}

// ResolveConflict applies the held request with the chosen resolution.
func ResolveConflict(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.ResolveConflictRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, pending := sess.Reconciler.Pending(); !pending {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "no fulfillment conflict is pending"))
			return
		}

		item, err := sess.Reconciler.Resolve(r.Context(), reconcile.Resolution(payload.Resolution))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newItemResponse(sess, agg, item, false))
	}
}

// DismissConflict drops the held request; the sack is unchanged.
func DismissConflict(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Reconciler.Dismiss()
		responses.WriteSuccess(w, newSackView(sess, agg))
	}
}

// ApplyCoupon records a recognised coupon on the session.
func ApplyCoupon(book *totals.CouponBook, agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if book == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon book unavailable"))
			return
		}
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload dto.CouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := book.Apply(validators.SanitizeString(payload.Code, 32))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.SetCoupon(coupon)
		responses.WriteSuccess(w, newSackView(sess, agg))
	}
}

// Totals returns the money summary, optionally scoped by ?studio_id=.
func Totals(agg *totals.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := sess.Store.Items()
		if studioID := strings.TrimSpace(r.URL.Query().Get("studio_id")); studioID != "" {
			items = sess.Store.ItemsForStudio(studioID)
		}
		responses.WriteSuccess(w, newTotalsView(items, sess.Coupon(), agg))
	}
}

func sessionFromRequest(r *http.Request) (*session.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sack session missing")
	}
	return sess, nil
}

func sessionAndService(r *http.Request) (*session.Session, string, error) {
	sess, err := sessionFromRequest(r)
	if err != nil {
		return nil, "", err
	}
	serviceID, err := validators.PathParam(r, "serviceID")
	if err != nil {
		return nil, "", err
	}
	return sess, serviceID, nil
}
