package sack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/skawsh-sack/api/responses"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
)

const (
	sackEvent         = "sack"
	defaultHeartbeat  = 25 * time.Second
	eventStreamHeader = "text/event-stream"
)

// Events streams a fresh sack view as a server-sent event after every change,
// starting with the current state. Bursts of changes coalesce into one event.
func Events(agg *totals.Aggregator, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Time{}); err != nil && !isUnsupported(err) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear write deadline"))
			return
		}

		changed := make(chan struct{}, 1)
		unsubscribe := sess.Bus().Subscribe(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", eventStreamHeader)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		logg.Debug(ctx, "sack.events_subscribed")
		defer logg.Debug(ctx, "sack.events_closed")

		var seq uint64
		send := func() error {
			seq++
			payload, err := json.Marshal(newSackView(sess, agg))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, sackEvent, payload); err != nil {
				return err
			}
			return rc.Flush()
		}

		if err := send(); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "sack.events_write_failed")
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if err := send(); err != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "sack.events_write_failed")
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func isUnsupported(err error) bool {
	return errors.Is(err, http.ErrNotSupported)
}
