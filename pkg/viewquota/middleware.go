package viewquota

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type contextKey struct{}

// Allowance is what the middleware learned about the current visitor. Posts
// past the quota are served truncated, not blocked, so the middleware never
// rejects a request itself.
type Allowance struct {
	VisitorID string
	Views     int64
	Exceeded  bool
}

// FromContext returns the visitor allowance set by Middleware. The zero
// value (not exceeded) is returned for requests that did not pass through
// the middleware, e.g. authenticated ones.
func FromContext(ctx context.Context) Allowance {
	a, _ := ctx.Value(contextKey{}).(Allowance)
	return a
}

// Middleware identifies anonymous visitors by cookie, counts the view, and
// stores the resulting allowance in the request context. Counter outages
// fail open: an unmetered view is better than a hard error on the read path.
func Middleware(counter Counter, cfg Config, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
				visitorID = c.Value
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(cfg.Window.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			allowance := Allowance{VisitorID: visitorID}
			views, err := counter.Incr(r.Context(), visitorID)
			if err != nil {
				log.ErrorContext(r.Context(), "view counter unavailable", "error", err)
			} else {
				allowance.Views = views
				allowance.Exceeded = views > int64(cfg.Limit)
			}

			ctx := context.WithValue(r.Context(), contextKey{}, allowance)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
