package billing

import "time"

// Config holds the recurring-billing processor credentials and endpoints.
// BaseURL defaults to the sandbox host so a misconfigured deploy cannot
// accidentally bill real customers.
type Config struct {
	BaseURL      string        `env:"BILLING_API_BASE_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `env:"BILLING_CLIENT_ID,required"`
	ClientSecret string        `env:"BILLING_CLIENT_SECRET,required"`
	WebhookID    string        `env:"BILLING_WEBHOOK_ID"` // enables signature verification when set
	ReturnURL    string        `env:"BILLING_RETURN_URL,required"`
	CancelURL    string        `env:"BILLING_CANCEL_URL,required"`
	Timeout      time.Duration `env:"BILLING_HTTP_TIMEOUT" envDefault:"30s"`
	RetryMax     int           `env:"BILLING_HTTP_RETRY_MAX" envDefault:"3"`
}
