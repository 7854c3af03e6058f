package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ProfileStore looks up the stored profile for an authenticated subject.
type ProfileStore interface {
	Get(ctx context.Context, id string) (Identity, error)
}

type Middleware struct {
	log      *slog.Logger
	profiles ProfileStore
	secret   []byte
}

func NewMiddleware(log *slog.Logger, profiles ProfileStore, secret []byte) *Middleware {
	return &Middleware{log: log, profiles: profiles, secret: secret}
}

// Handler resolves a Bearer token into an Identity and stores it in the
// request context. Requests without a usable token pass through anonymous;
// rejecting them is the route handler's call.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.log.Warn("token rejected", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := m.profiles.Get(r.Context(), sub)
		if err != nil {
			m.log.Warn("profile lookup failed", "subject", sub, "err", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ident)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}
