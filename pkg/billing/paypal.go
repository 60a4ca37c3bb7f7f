package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// PayPalGateway implements Gateway against the PayPal-style recurring-billing
// REST API (OAuth2 client credentials, /v1/billing plans and subscriptions,
// /v1/payments sales). All requests share a retrying HTTP client with a
// bounded per-request timeout.
type PayPalGateway struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalGateway creates a gateway client. It does not call the processor;
// authentication happens lazily on first use.
func NewPayPalGateway(cfg Config, log *slog.Logger) (*PayPalGateway, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client credentials are required", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil // request logging goes through slog below

	return &PayPalGateway{
		cfg:  cfg,
		http: rc.StandardClient(),
		log:  log,
	}, nil
}

// token returns a cached OAuth2 access token, refreshing it when it is within
// a minute of expiry.
func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Join(ErrAuthFailed, err)
	}
	req.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", errors.Join(ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", errors.Join(ErrAuthFailed, err)
	}

	g.accessToken = tok.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return g.accessToken, nil
}

// do performs an authenticated JSON request and decodes the response into out
// when out is non-nil. The returned status code lets callers distinguish
// "no content" success from other 2xx responses.
func (g *PayPalGateway) do(ctx context.Context, method, path string, in, out any) (int, error) {
	token, err := g.token(ctx)
	if err != nil {
		return 0, err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, errors.Join(ErrRequestFailed, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, body)
	if err != nil {
		return 0, errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		g.log.WarnContext(ctx, "billing gateway request failed",
			"method", method, "path", path, "status", resp.StatusCode, "body", string(raw))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Join(ErrRequestFailed, err)
		}
	}
	return resp.StatusCode, nil
}

// CreatePlan registers a recurring plan and returns the processor plan ID.
func (g *PayPalGateway) CreatePlan(ctx context.Context, req PlanRequest) (string, error) {
	payload := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"billing_cycles": []map[string]any{{
			"frequency": map[string]any{
				"interval_unit":  req.Interval,
				"interval_count": 1,
			},
			"tenure_type":  "REGULAR",
			"sequence":     1,
			"total_cycles": 0, // infinite
			"pricing_scheme": map[string]any{
				"fixed_price": map[string]string{
					"value":         formatAmount(req.Amount),
					"currency_code": req.Currency,
				},
			},
		}},
		"payment_preferences": map[string]any{
			"auto_bill_outstanding":     true,
			"payment_failure_threshold": 3,
		},
	}

	var out struct {
		ID string `json:"id"`
	}
	if _, err := g.do(ctx, http.MethodPost, "/v1/billing/plans", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateSubscription creates a processor subscription carrying the local
// correlation key in custom_id and returns the buyer approval link.
func (g *PayPalGateway) CreateSubscription(ctx context.Context, correlationKey, planID string) (*CheckoutSession, error) {
	if planID == "" {
		return nil, ErrPlanNotRegistered
	}

	payload := map[string]any{
		"plan_id":   planID,
		"custom_id": correlationKey,
		"application_context": map[string]string{
			"return_url": g.cfg.ReturnURL,
			"cancel_url": g.cfg.CancelURL,
		},
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if _, err := g.do(ctx, http.MethodPost, "/v1/billing/subscriptions", payload, &out); err != nil {
		return nil, err
	}

	session := &CheckoutSession{SubscriptionID: out.ID}
	for _, link := range out.Links {
		if link.Rel == "approve" {
			session.ApprovalURL = link.Href
			break
		}
	}
	if session.ApprovalURL == "" {
		return nil, ErrNoApprovalURL
	}
	return session, nil
}

// CancelSubscription stops future billing. The processor signals success with
// 204 No Content; anything else is reported as ErrCancelRejected so callers
// can treat it as a non-fatal downstream failure.
func (g *PayPalGateway) CancelSubscription(ctx context.Context, externalID, reason string) error {
	path := "/v1/billing/subscriptions/" + url.PathEscape(externalID) + "/cancel"
	status, err := g.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, nil)
	if err != nil {
		return errors.Join(ErrCancelRejected, err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: unexpected status %d", ErrCancelRejected, status)
	}
	return nil
}

// GetSubscriptionStatus fetches the processor's view of a subscription.
func (g *PayPalGateway) GetSubscriptionStatus(ctx context.Context, externalID string) (*SubscriptionStatus, error) {
	var out struct {
		Status      string `json:"status"`
		BillingInfo struct {
			NextBillingTime time.Time `json:"next_billing_time"`
		} `json:"billing_info"`
	}
	path := "/v1/billing/subscriptions/" + url.PathEscape(externalID)
	if _, err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &SubscriptionStatus{
		Status:          out.Status,
		NextBillingTime: out.BillingInfo.NextBillingTime,
	}, nil
}

// GetSale fetches a one-time payment resource for verification.
func (g *PayPalGateway) GetSale(ctx context.Context, saleID string) (*Sale, error) {
	var out struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	path := "/v1/payments/sale/" + url.PathEscape(saleID)
	if _, err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &Sale{ID: out.ID, State: out.State}, nil
}

// VerifyWebhook asks the processor to confirm a webhook delivery's signature.
// Verification is skipped (returns true) when no webhook ID is configured,
// which keeps local development working without processor round-trips.
func (g *PayPalGateway) VerifyWebhook(ctx context.Context, headers http.Header, payload []byte) (bool, error) {
	if g.cfg.WebhookID == "" {
		return true, nil
	}

	body := map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        g.cfg.WebhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if _, err := g.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", body, &out); err != nil {
		return false, err
	}
	return out.VerificationStatus == "SUCCESS", nil
}

// formatAmount renders a smallest-unit amount as a decimal string the
// processor expects ("500" cents -> "5.00").
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
