package sack

import (
	"github.com/angelmondragon/skawsh-sack/api/controllers/sack/dto"
	"github.com/angelmondragon/skawsh-sack/internal/reconcile"
	sacksvc "github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/internal/session"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
)

func newSackView(sess *session.Session, agg *totals.Aggregator) dto.SackView {
	items := sess.Store.Items()
	if items == nil {
		items = []sacksvc.LineItem{}
	}
	coupon := sess.Coupon()

	view := dto.SackView{
		SessionID:           sess.ID,
		Items:               items,
		UniqueServiceCount:  len(items),
		DominantType:        sacksvc.Dominant(items),
		SelectedFulfillment: sess.Reconciler.Selected(),
		State:               sess.Reconciler.State(),
		Totals:              agg.Aggregate(items, coupon),
	}
	if pending, ok := sess.Reconciler.Pending(); ok {
		view.PendingConflict = &pending
	}
	if coupon.Code != "" {
		view.Coupon = &coupon
	}
	return view
}

func newAddItemResponse(sess *session.Session, agg *totals.Aggregator, outcome reconcile.Outcome, celebrate bool) dto.AddItemResponse {
	return dto.AddItemResponse{
		Applied:   outcome.Applied,
		Item:      outcome.Item,
		Conflict:  outcome.Conflict,
		Celebrate: celebrate,
		Sack:      newSackView(sess, agg),
	}
}

func newItemResponse(sess *session.Session, agg *totals.Aggregator, item *sacksvc.LineItem, removed bool) dto.ItemResponse {
	return dto.ItemResponse{
		Item:    item,
		Removed: removed,
		Sack:    newSackView(sess, agg),
	}
}

func newTotalsView(items []sacksvc.LineItem, coupon totals.Coupon, agg *totals.Aggregator) dto.TotalsView {
	groups := totals.GroupByStudio(items)
	view := dto.TotalsView{
		Summary: agg.Aggregate(items, coupon),
		Studios: make([]dto.StudioTotals, 0, len(groups)),
	}
	for _, group := range groups {
		view.Studios = append(view.Studios, dto.StudioTotals{
			StudioID:   group.StudioID,
			StudioName: group.StudioName,
			Summary:    agg.Aggregate(group.Items, coupon),
		})
	}
	return view
}
