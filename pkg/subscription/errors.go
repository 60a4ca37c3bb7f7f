package subscription

import "errors"

var (
	// Not-found errors.
	ErrProfileNotFound = errors.New("subscription profile not found")
	ErrSessionNotFound = errors.New("payment session not found")

	// Conflict errors: the requested transition is not legal from the
	// current state. Local state is left untouched.
	ErrInvalidSessionTransition = errors.New("payment session transition not allowed")
	ErrAlreadyCancelled         = errors.New("subscription is already cancelled")
	ErrCancelNotAllowed         = errors.New("subscription cannot be cancelled from its current status")
	ErrReactivateNotAllowed     = errors.New("only a cancelled subscription can be reactivated")
	ErrReactivateExpired        = errors.New("cancelled subscription has expired, renewal required")
	ErrSessionNotPaid           = errors.New("payment session is not paid")
	ErrSessionExpired           = errors.New("payment session has expired")
	ErrSessionAlreadyLinked     = errors.New("payment session is already linked to a user")

	// Infrastructure errors.
	ErrFailedToSaveProfile = errors.New("failed to save subscription profile")
	ErrFailedToSaveSession = errors.New("failed to save payment session")
	ErrCheckoutFailed      = errors.New("failed to start checkout")
)
