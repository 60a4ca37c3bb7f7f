package viewquota

import "time"

// Config controls the anonymous view quota.
type Config struct {
	// Limit is how many posts an anonymous visitor may view per window
	// before being served truncated content.
	Limit      int           `env:"VIEW_QUOTA_LIMIT" envDefault:"3"`
	Window     time.Duration `env:"VIEW_QUOTA_WINDOW" envDefault:"24h"`
	CookieName string        `env:"VIEW_QUOTA_COOKIE" envDefault:"qp_visitor"`
	// CookieSecure should be enabled everywhere TLS terminates.
	CookieSecure bool `env:"VIEW_QUOTA_COOKIE_SECURE" envDefault:"true"`
}
