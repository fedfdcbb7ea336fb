// Package sack owns the authoritative list of line items for one session.
//
// Every mutation goes through Store: it prices the line, writes the full
// snapshot to storage and then broadcasts a change on the bus once its lock
// is released.
package sack

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/bus"
	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
	"github.com/angelmondragon/skawsh-sack/pkg/storage"
)

const (
	// ItemsKey holds the JSON array of line items.
	ItemsKey = "sack_items"
	// CelebratedKey records that the first-item celebration was shown.
	CelebratedKey = "first_item_celebrated"
)

// Params wires a Store.
type Params struct {
	Storage storage.Storage
	Bus     *bus.Bus
	Rules   *pricing.Rules
	Logger  *logger.Logger
	Metrics *metrics.SackMetrics
	Now     func() time.Time
}

// Store is safe for concurrent use; mutations are serialized.
type Store struct {
	mu         sync.Mutex
	items      []LineItem
	celebrated bool

	storage storage.Storage
	bus     *bus.Bus
	rules   *pricing.Rules
	logg    *logger.Logger
	metrics *metrics.SackMetrics
	now     func() time.Time
}

func NewStore(p Params) (*Store, error) {
	if p.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sack store requires storage")
	}
	if p.Rules == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sack store requires pricing rules")
	}
	if p.Bus == nil {
		p.Bus = bus.New(p.Logger)
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Store{
		storage: p.Storage,
		bus:     p.Bus,
		rules:   p.Rules,
		logg:    p.Logger,
		metrics: p.Metrics,
		now:     p.Now,
	}, nil
}

// Bus returns the change bus the store publishes to.
func (s *Store) Bus() *bus.Bus {
	return s.bus
}

// Load replaces the in-memory sack with the persisted snapshot. Missing or
// corrupt data yields an empty sack. A storage read failure is returned as a
// DEPENDENCY_ERROR and leaves the in-memory sack untouched.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.readItems(ctx)
	if err != nil {
		return err
	}
	celebrated, err := s.readCelebrated(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.items = items
	s.celebrated = celebrated
	s.mu.Unlock()

	s.bus.Publish()
	return nil
}

// read returns the raw value at key, reporting absence as ok=false.
func (s *Store) read(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.storage.Get(ctx, key)
	if stdErrors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		s.metrics.IncStorageFailure("read")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "sack.load_read_failed")
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sack storage unavailable")
	}
	return raw, true, nil
}

func (s *Store) readItems(ctx context.Context) ([]LineItem, error) {
	raw, ok, err := s.read(ctx, ItemsKey)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return nil, err
	}

	var decoded []LineItem
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "sack.load_corrupt_snapshot")
		return nil, nil
	}

	seen := make(map[string]struct{}, len(decoded))
	items := make([]LineItem, 0, len(decoded))
	for _, item := range decoded {
		if item.ServiceID == "" || !item.Amount.IsPositive() {
			continue
		}
		if _, dup := seen[item.ServiceID]; dup {
			continue
		}
		seen[item.ServiceID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) readCelebrated(ctx context.Context) (bool, error) {
	raw, ok, err := s.read(ctx, CelebratedKey)
	if err != nil || !ok {
		return false, err
	}
	celebrated, perr := strconv.ParseBool(strings.TrimSpace(raw))
	if perr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "value", raw), "sack.load_bad_celebration_flag")
		return false, nil
	}
	return celebrated, nil
}

// Upsert prices in and replaces the line for its service in place, or appends
// it. A non-positive amount removes the line and returns a nil item.
func (s *Store) Upsert(ctx context.Context, in Input) (*LineItem, error) {
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	if in.ServiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, s.Remove(ctx, in.ServiceID)
	}
	if in.Fulfillment == "" {
		in.Fulfillment = enums.FulfillmentStandard
	}
	price, err := s.rules.Price(in.rate(), in.Fulfillment, in.Amount)
	if err != nil {
		return nil, err
	}

	var stored LineItem
	err = s.mutate(ctx, "upsert", func() bool {
		line := LineItem{
			ServiceID:   in.ServiceID,
			Name:        in.Name,
			StudioID:    in.StudioID,
			StudioName:  in.StudioName,
			Fulfillment: in.Fulfillment,
			BasePrice:   in.BasePrice,
			Unit:        in.Unit,
			Amount:      in.Amount,
			Price:       price,
			SubItems:    cleanSubItems(in.SubItems),
			Category:    in.Category,
			SubCategory: in.SubCategory,
		}
		if idx := s.indexLocked(in.ServiceID); idx >= 0 {
			line.AddedAt = s.items[idx].AddedAt
			s.items[idx] = line
		} else {
			line.AddedAt = s.now().UTC()
			s.items = append(s.items, line)
		}
		stored = line.clone()
		return true
	})
	return &stored, err
}

// Remove deletes the line for serviceID. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, serviceID string) error {
	return s.mutate(ctx, "remove", func() bool {
		idx := s.indexLocked(serviceID)
		if idx < 0 {
			return false
		}
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return true
	})
}

// RemoveByFulfillment deletes every line of the given fulfillment type and
// reports how many were removed.
func (s *Store) RemoveByFulfillment(ctx context.Context, fulfillment enums.FulfillmentType) (int, error) {
	removed := 0
	err := s.mutate(ctx, "remove_fulfillment", func() bool {
		kept := s.items[:0]
		for _, item := range s.items {
			if item.Fulfillment == fulfillment {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		s.items = kept
		return removed > 0
	})
	return removed, err
}

// Clear empties the sack for every studio.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func() bool {
		s.items = nil
		return true
	})
}

// Step moves the amount of serviceID by delta increments and reprices it.
// Reaching zero removes the line and returns a nil item.
func (s *Store) Step(ctx context.Context, serviceID string, delta int) (*LineItem, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "step delta must not be zero")
	}

	var (
		stored  *LineItem
		lookErr error
	)
	err := s.mutate(ctx, "step", func() bool {
		idx := s.indexLocked(serviceID)
		if idx < 0 {
			lookErr = notFound(serviceID)
			return false
		}
		item := s.items[idx]
		next, removed := pricing.Step(item.Amount, delta)
		if removed {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return true
		}
		price, err := s.rules.Price(item.Rate(), item.Fulfillment, next)
		if err != nil {
			lookErr = err
			return false
		}
		item.Amount = next
		item.Price = price
		s.items[idx] = item
		copied := item.clone()
		stored = &copied
		return true
	})
	if lookErr != nil {
		return nil, lookErr
	}
	return stored, err
}

// UpdateSubItems replaces the garment breakdown of serviceID.
func (s *Store) UpdateSubItems(ctx context.Context, serviceID string, subItems []SubItem) (*LineItem, error) {
	var (
		stored  LineItem
		lookErr error
	)
	err := s.mutate(ctx, "sub_items", func() bool {
		idx := s.indexLocked(serviceID)
		if idx < 0 {
			lookErr = notFound(serviceID)
			return false
		}
		s.items[idx].SubItems = cleanSubItems(subItems)
		stored = s.items[idx].clone()
		return true
	})
	if lookErr != nil {
		return nil, lookErr
	}
	return &stored, err
}

// ConsumeFirstItemCelebration returns true exactly once, the first time it is
// called while the sack holds an item. The flag survives reloads.
func (s *Store) ConsumeFirstItemCelebration(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.celebrated || len(s.items) == 0 {
		return false
	}
	s.celebrated = true
	if err := s.storage.Set(ctx, CelebratedKey, "true"); err != nil {
		s.metrics.IncStorageFailure("write")
		s.logg.Error(ctx, "sack.persist_celebration_failed", err)
	}
	return true
}

// Get returns a copy of the line for serviceID.
func (s *Store) Get(serviceID string) (LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(serviceID)
	if idx < 0 {
		return LineItem{}, false
	}
	return s.items[idx].clone(), true
}

// Items returns a copy of every line in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// ItemsForStudio returns the lines belonging to studioID.
func (s *Store) ItemsForStudio(studioID string) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, 0, len(s.items))
	for _, item := range s.items {
		if item.StudioID == studioID {
			out = append(out, item.clone())
		}
	}
	return out
}

// UniqueServiceCount is the number of distinct services in the sack.
func (s *Store) UniqueServiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// DominantType reports the fulfillment mix of the whole sack.
func (s *Store) DominantType() enums.DominantType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dominant(s.items)
}

// mutate runs fn under the lock; when fn reports a change the snapshot is
// persisted and the bus notified after unlocking. A failed write keeps the
// in-memory change and is returned as a dependency error.
func (s *Store) mutate(ctx context.Context, op string, fn func() bool) error {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return nil
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.metrics.IncMutation(op)
	s.bus.Publish()
	return err
}

func (s *Store) persistLocked(ctx context.Context) error {
	snapshot := s.items
	if snapshot == nil {
		snapshot = []LineItem{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding sack snapshot")
	}
	if err := s.storage.Set(ctx, ItemsKey, string(payload)); err != nil {
		s.metrics.IncStorageFailure("write")
		s.logg.Error(ctx, "sack.persist_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting sack")
	}
	return nil
}

func (s *Store) indexLocked(serviceID string) int {
	for i, item := range s.items {
		if item.ServiceID == serviceID {
			return i
		}
	}
	return -1
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}

func notFound(serviceID string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "service %q is not in the sack", serviceID)
}
