package idempotency

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const HeaderKey = "Idempotency-Key"

// Middleware rejects replays of a request carrying an Idempotency-Key the
// store has seen before. Requests without the header pass through; a redis
// outage fails open rather than blocking checkouts.
func Middleware(log *slog.Logger, store *Store, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			seen, err := store.Seen(r.Context(), store.Key(route, key))
			if err != nil {
				log.Error("idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "duplicate request"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
