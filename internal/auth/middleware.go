package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var sessionKey contextKey

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok
}

// WithSession injects a session into a context. Used by the middleware and by
// the websocket handshake.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// Middleware rejects requests without a valid bearer token and attaches the
// session to the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization token"}`, http.StatusUnauthorized)
			return
		}
		session, err := s.VerifyToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid authorization token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	// Websocket clients cannot set headers from the browser.
	return r.URL.Query().Get("token")
}
