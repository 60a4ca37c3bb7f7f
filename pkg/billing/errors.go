package billing

import "errors"

var (
	ErrMalformedEvent        = errors.New("malformed billing event payload")
	ErrMissingCorrelationKey = errors.New("billing event is missing its correlation key")

	ErrInvalidConfig     = errors.New("invalid billing gateway configuration")
	ErrAuthFailed        = errors.New("billing gateway authentication failed")
	ErrRequestFailed     = errors.New("billing gateway request failed")
	ErrCancelRejected    = errors.New("billing gateway rejected the cancellation")
	ErrNoApprovalURL     = errors.New("no approval URL returned by the billing gateway")
	ErrPlanNotRegistered = errors.New("plan is not registered with the billing gateway")
)
