// Package reconcile guards the sack against unintended mixes of standard and
// express lines. New services requested under a fulfillment type that differs
// from the sack's dominant type are held until the user picks a resolution.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
)

type State string

const (
	StateClean           State = "clean"
	StateConflictPending State = "conflict_pending"
)

type Resolution string

const (
	// SwitchToStandard drops every express line and applies the held service as standard.
	SwitchToStandard Resolution = "switch_to_standard"
	// ContinueMixed applies the held service as requested, leaving a mixed sack.
	ContinueMixed Resolution = "continue_mixed"
)

// ParseResolution converts raw input into a Resolution.
func ParseResolution(value string) (Resolution, error) {
	switch Resolution(value) {
	case SwitchToStandard, ContinueMixed:
		return Resolution(value), nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid resolution %q", value)
}

// AddRequest asks for a service to be added or changed. An empty Fulfillment
// means the currently selected type.
type AddRequest struct {
	Input sack.Input
}

// PendingConflict is the request held while the user decides.
type PendingConflict struct {
	Input     sack.Input            `json:"-"`
	ServiceID string                `json:"service_id"`
	Name      string                `json:"name"`
	Requested enums.FulfillmentType `json:"requested"`
	Dominant  enums.DominantType    `json:"dominant_type"`
	RaisedAt  time.Time             `json:"raised_at"`
}

// Outcome reports what a Request did. Exactly one of Applied or Conflict is set
// unless the request removed the line.
type Outcome struct {
	Applied  bool             `json:"applied"`
	Item     *sack.LineItem   `json:"item,omitempty"`
	Conflict *PendingConflict `json:"conflict,omitempty"`
}

// Reconciler serializes add requests for one sack. Bus listeners must not call
// back into it synchronously.
type Reconciler struct {
	mu       sync.Mutex
	store    *sack.Store
	selected enums.FulfillmentType
	pending  *PendingConflict

	logg    *logger.Logger
	metrics *metrics.SackMetrics
	now     func() time.Time
}

func New(store *sack.Store, logg *logger.Logger, m *metrics.SackMetrics) *Reconciler {
	return &Reconciler{
		store:    store,
		selected: enums.FulfillmentStandard,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}
}

// Select changes the active fulfillment tab.
func (r *Reconciler) Select(f enums.FulfillmentType) error {
	if !f.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid fulfillment type %q", f)
	}
	r.mu.Lock()
	r.selected = f
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) Selected() enums.FulfillmentType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		return StateConflictPending
	}
	return StateClean
}

// Pending returns a copy of the held conflict.
func (r *Reconciler) Pending() (PendingConflict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return PendingConflict{}, false
	}
	return *r.pending, true
}

// Request applies req unless it adds a new service whose type clashes with a
// single-type sack, in which case the request is held and nothing changes.
// Services already in the sack keep their existing fulfillment type.
//
// Once the sack holds both types (the user chose ContinueMixed) it reports
// DominantBoth and new services of either type are applied without a
// conflict. A mixed sack is not treated as express-dominant.
func (r *Reconciler) Request(ctx context.Context, req AddRequest) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "a fulfillment conflict is awaiting resolution").
			WithDetails(map[string]any{"service_id": r.pending.ServiceID})
	}

	in := req.Input
	if in.Fulfillment == "" {
		in.Fulfillment = r.selected
	}
	if !in.Fulfillment.IsValid() {
		return Outcome{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid fulfillment type %q", in.Fulfillment)
	}

	if existing, ok := r.store.Get(in.ServiceID); ok {
		in.Fulfillment = existing.Fulfillment
		return r.applyLocked(ctx, in)
	}

	if !in.Amount.IsPositive() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	dominant := r.store.DominantType()
	if dominant != enums.DominantNone && dominant != enums.DominantBoth && !dominant.Matches(in.Fulfillment) {
		r.pending = &PendingConflict{
			Input:     in,
			ServiceID: in.ServiceID,
			Name:      in.Name,
			Requested: in.Fulfillment,
			Dominant:  dominant,
			RaisedAt:  r.now().UTC(),
		}
		r.metrics.IncConflict("raised")
		ctx = r.logg.WithServiceID(ctx, in.ServiceID)
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"requested": string(in.Fulfillment),
			"dominant":  string(dominant),
		}), "reconcile.conflict_raised")
		held := *r.pending
		return Outcome{Conflict: &held}, nil
	}

	return r.applyLocked(ctx, in)
}

// Resolve applies the held request with the chosen resolution and returns to
// clean. Without a held request it does nothing.
func (r *Reconciler) Resolve(ctx context.Context, res Resolution) (*sack.LineItem, error) {
	if _, err := ParseResolution(string(res)); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.pending
	r.pending = nil
	if pending == nil {
		return nil, nil
	}
	r.metrics.IncConflict(string(res))

	in := pending.Input
	var removeErr error
	if res == SwitchToStandard {
		removed, err := r.store.RemoveByFulfillment(ctx, enums.FulfillmentExpress)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			return nil, err
		}
		removeErr = err
		r.selected = enums.FulfillmentStandard
		in.Fulfillment = enums.FulfillmentStandard
		r.logg.Info(r.logg.WithField(ctx, "removed", removed), "reconcile.switched_to_standard")
	}

	outcome, err := r.applyLocked(ctx, in)
	if err != nil {
		return outcome.Item, err
	}
	return outcome.Item, removeErr
}

// Dismiss drops the held request without applying it.
func (r *Reconciler) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.metrics.IncConflict("dismissed")
	}
	r.pending = nil
}

func (r *Reconciler) applyLocked(ctx context.Context, in sack.Input) (Outcome, error) {
	item, err := r.store.Upsert(ctx, in)
	if item == nil && err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: item != nil, Item: item}, err
}
