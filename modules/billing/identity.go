package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/core"
)

// userHeader carries the authenticated user's ID, set by the identity proxy
// in front of this service.
const userHeader = "X-User-ID"

type userKey struct{}

// RequireUser rejects requests without a valid user identity and stores the
// user ID in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get(userHeader))
		if err != nil || userID == uuid.Nil {
			core.JSONError(w, core.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user ID set by RequireUser.
func UserFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok
}

// OptionalUser returns the user ID when the identity header is present and
// valid, uuid.Nil otherwise. Used by endpoints that serve both visitors and
// authenticated users.
func OptionalUser(r *http.Request) uuid.UUID {
	userID, err := uuid.Parse(r.Header.Get(userHeader))
	if err != nil {
		return uuid.Nil
	}
	return userID
}
