package core

import (
	"errors"
	"net/http"

	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/subscription"
)

// HTTPError is an HTTP status paired with a stable machine-readable key.
// The key is what clients branch on; the status text is for humans.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // stable error key, e.g. "not_found", "conflict"
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest         = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized       = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrPaymentRequired    = HTTPError{Code: http.StatusPaymentRequired, Key: "payment_required"}
	ErrForbidden          = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound           = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict           = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrGone               = HTTPError{Code: http.StatusGone, Key: "gone"}
	ErrTooManyRequests    = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServer     = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// NewHTTPError creates a custom HTTP error.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

// domainErrors maps domain sentinels to their HTTP projection. Conflict
// errors (illegal transitions) map to 409, missing records to 404, expired
// checkout sessions to 410.
var domainErrors = []struct {
	err  error
	http HTTPError
}{
	{subscription.ErrProfileNotFound, ErrNotFound},
	{subscription.ErrSessionNotFound, ErrNotFound},
	{catalog.ErrPlanNotFound, ErrNotFound},
	{subscription.ErrAlreadyCancelled, NewHTTPError(http.StatusConflict, "already_cancelled")},
	{subscription.ErrCancelNotAllowed, NewHTTPError(http.StatusConflict, "cancel_not_allowed")},
	{subscription.ErrReactivateNotAllowed, NewHTTPError(http.StatusConflict, "reactivate_not_allowed")},
	{subscription.ErrReactivateExpired, NewHTTPError(http.StatusConflict, "subscription_expired")},
	{subscription.ErrSessionNotPaid, NewHTTPError(http.StatusConflict, "session_not_paid")},
	{subscription.ErrSessionAlreadyLinked, NewHTTPError(http.StatusConflict, "session_already_linked")},
	{subscription.ErrInvalidSessionTransition, ErrConflict},
	{subscription.ErrSessionExpired, NewHTTPError(http.StatusGone, "session_expired")},
	{billing.ErrMissingCorrelationKey, NewHTTPError(http.StatusBadRequest, "missing_correlation_key")},
	{billing.ErrMalformedEvent, NewHTTPError(http.StatusBadRequest, "malformed_event")},
}

// MapError projects an error onto its HTTP representation. Unrecognized
// errors become 500 so infrastructure failures are never mistaken for
// client mistakes.
func MapError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.http
		}
	}
	return ErrInternalServer
}
