package config

import "errors"

var (
	ErrNilPointer    = errors.New("config: nil pointer passed to Load")
	ErrFailedToParse = errors.New("config: failed to parse environment variables")
)
