// Package bus broadcasts "sack changed" signals to any number of listeners.
//
// Delivery is at-least-once and unordered across listeners. Publish calls every
// listener synchronously on the caller's goroutine, so callers must publish only
// after releasing their own locks.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/skawsh-sack/pkg/logger"
)

// Listener is invoked once per published change.
type Listener func()

// Bus is a callback registry. The zero value is not usable; use New.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
	logg      *logger.Logger
}

func New(logg *logger.Logger) *Bus {
	return &Bus{listeners: map[uint64]Listener{}, logg: logg}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish notifies every listener registered at the time of the call.
func (b *Bus) Publish() {
	b.mu.RLock()
	snapshot := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		snapshot = append(snapshot, fn)
	}
	b.mu.RUnlock()

	for _, fn := range snapshot {
		b.deliver(fn)
	}
}

// Len reports the number of active listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Bus) deliver(fn Listener) {
	defer func() {
		if rec := recover(); rec != nil {
			ctx := b.logg.WithField(context.Background(), "panic", rec)
			b.logg.Error(ctx, "bus.listener_panicked", fmt.Errorf("listener panic: %v", rec))
		}
	}()
	fn()
}
