// Package session keeps one sack, reconciler and coupon per client session.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/bus"
	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/internal/reconcile"
	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
	"github.com/angelmondragon/skawsh-sack/pkg/storage"
)

const (
	// Header carries the session id on HTTP requests.
	Header = "X-Sack-Session"
	// DefaultID is used when no session id is supplied.
	DefaultID = "local"
	// KeyPrefix namespaces every storage key of a session.
	KeyPrefix = "sack"
	// DefaultIdleTTL is how long an unused session stays in memory.
	DefaultIdleTTL = 30 * time.Minute
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NormalizeID trims raw and falls back to DefaultID when it is empty.
func NormalizeID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return DefaultID, nil
	}
	if !idPattern.MatchString(id) {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid session id %q", id)
	}
	return id, nil
}

// Session bundles the per-session sack state.
type Session struct {
	ID         string
	Store      *sack.Store
	Reconciler *reconcile.Reconciler

	mu     sync.Mutex
	coupon totals.Coupon

	// lastSeen is guarded by Manager.mu.
	lastSeen time.Time
}

// Bus returns the change bus of the session's sack.
func (s *Session) Bus() *bus.Bus {
	return s.Store.Bus()
}

func (s *Session) Coupon() totals.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupon
}

// SetCoupon records the applied coupon and notifies listeners so totals refresh.
func (s *Session) SetCoupon(c totals.Coupon) {
	s.mu.Lock()
	s.coupon = c
	s.mu.Unlock()
	s.Store.Bus().Publish()
}

// Params wires a Manager. IdleTTL defaults to DefaultIdleTTL.
type Params struct {
	Storage storage.Storage
	Rules   *pricing.Rules
	Logger  *logger.Logger
	Metrics *metrics.SackMetrics
	IdleTTL time.Duration
	Now     func() time.Time
}

// Manager lazily creates sessions and evicts those left idle for longer than
// the idle TTL. Evicted sessions reload from storage on their next request.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	storage storage.Storage
	rules   *pricing.Rules
	logg    *logger.Logger
	metrics *metrics.SackMetrics
	idleTTL time.Duration
	now     func() time.Time
}

func NewManager(p Params) (*Manager, error) {
	if p.Storage == nil {
		return nil, fmt.Errorf("session storage required")
	}
	if p.Rules == nil {
		return nil, fmt.Errorf("pricing rules required")
	}
	if p.IdleTTL <= 0 {
		p.IdleTTL = DefaultIdleTTL
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Manager{
		sessions: map[string]*Session{},
		storage:  p.Storage,
		rules:    p.Rules,
		logg:     p.Logger,
		metrics:  p.Metrics,
		idleTTL:  p.IdleTTL,
		now:      p.Now,
	}, nil
}

// Get returns the session for id, loading its persisted sack on first use.
// A storage read failure is returned and nothing is cached, so the next
// request retries the load.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.lastSeen = m.now()
		return sess, nil
	}

	store, err := sack.NewStore(sack.Params{
		Storage: storage.WithPrefix(m.storage, KeyPrefix, id),
		Bus:     bus.New(m.logg),
		Rules:   m.rules,
		Logger:  m.logg,
		Metrics: m.metrics,
	})
	if err != nil {
		return nil, err
	}
	ctx = m.logg.WithSessionID(ctx, id)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:         id,
		Store:      store,
		Reconciler: reconcile.New(store, m.logg, m.metrics),
		lastSeen:   m.now(),
	}
	m.sessions[id] = sess
	m.logg.Info(m.logg.WithField(ctx, "items", store.UniqueServiceCount()), "session.loaded")
	return sess, nil
}

// EvictIdle drops sessions unused for longer than the idle TTL. Sessions with
// live bus listeners, such as an open event stream, are kept.
func (m *Manager) EvictIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, sess := range m.sessions {
		if sess.lastSeen.After(cutoff) || sess.Bus().Len() > 0 {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		m.logg.Debug(m.logg.WithFields(ctx, map[string]any{
			"evicted":   evicted,
			"remaining": len(m.sessions),
		}), "session.evicted_idle")
	}
	return evicted
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx)
		}
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
