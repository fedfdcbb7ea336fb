package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/skawsh-sack/api/responses"
	"github.com/angelmondragon/skawsh-sack/internal/session"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
)

// sessionQueryParam lets EventSource clients, which cannot set headers, pick a session.
const sessionQueryParam = "session"

// SessionResolver returns the session for an id.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Session resolves the caller's sack session from the X-Sack-Session header.
func Session(sessions SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(session.Header)
			if raw == "" {
				raw = r.URL.Query().Get(sessionQueryParam)
			}
			sess, err := sessions.Get(r.Context(), raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID)
			}
			w.Header().Set(session.Header, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
