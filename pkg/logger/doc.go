// Package logger builds configured log/slog loggers with environment-aware
// defaults and context-based attribute injection.
//
// Production gets JSON output at info level, development gets text output at
// debug level. Context extractors allow request-scoped values (request ID,
// user ID) to be attached to every record without threading loggers through
// call stacks.
package logger
