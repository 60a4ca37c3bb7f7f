package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*service)

// WithNotifier sets the lifecycle notification dispatcher. Without it the
// service silently drops notifications.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
