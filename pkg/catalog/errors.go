package catalog

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrInvalidPlan       = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans = errors.New("failed to load plans")
)
