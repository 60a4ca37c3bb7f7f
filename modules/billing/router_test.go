package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moduleb "github.com/quillpost/quillpost/modules/billing"
	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/subscription"
)

type stubGateway struct {
	cancelCalls int
}

func (g *stubGateway) CreatePlan(context.Context, billing.PlanRequest) (string, error) {
	return "P-STUB", nil
}

func (g *stubGateway) CreateSubscription(context.Context, string, string) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{SubscriptionID: "I-STUB", ApprovalURL: "https://processor.test/approve"}, nil
}

func (g *stubGateway) CancelSubscription(context.Context, string, string) error {
	g.cancelCalls++
	return nil
}

func (g *stubGateway) GetSubscriptionStatus(context.Context, string) (*billing.SubscriptionStatus, error) {
	return &billing.SubscriptionStatus{Status: "ACTIVE"}, nil
}

func (g *stubGateway) GetSale(context.Context, string) (*billing.Sale, error) {
	return &billing.Sale{ID: "SALE-STUB", State: "completed"}, nil
}

type fixture struct {
	profiles subscription.ProfileStore
	sessions subscription.SessionStore
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	plans, err := catalog.New(context.Background(), catalog.NewInMemSource(catalog.Plan{
		ID:              "premium-monthly",
		Name:            "Premium Monthly",
		Price:           catalog.Money{Amount: 500, Currency: "USD"},
		Interval:        catalog.BillingIntervalMonthly,
		Type:            catalog.PlanTypeRecurring,
		ProcessorPlanID: "P-PREMIUM",
		Public:          true,
	}))
	require.NoError(t, err)

	profiles := subscription.NewMemoryProfileStore()
	sessions := subscription.NewMemorySessionStore()
	gateway := &stubGateway{}

	svc := subscription.NewService(profiles, sessions, gateway, plans)
	rec := subscription.NewReconciler(profiles, sessions, gateway,
		subscription.NewMemoryDeduper(), subscription.NewMemoryLocker())

	srv := httptest.NewServer(moduleb.Router(moduleb.RouterOptions{
		Service:    svc,
		Reconciler: rec,
		Plans:      plans,
	}))
	t.Cleanup(srv.Close)

	return &fixture{profiles: profiles, sessions: sessions, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, userID, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("activation event links the session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.sessions.Create(context.Background(), &subscription.PaymentSession{
			ExternalReference: "ref-1",
			Status:            subscription.SessionPending,
			ExpiresAt:         time.Now().Add(time.Hour),
		}))

		resp := f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"id": "WH-1",
			"event_type": "SUBSCRIPTION.ACTIVATED",
			"resource": {"id": "I-100", "custom_id": "ref-1"}
		}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		sess, err := f.sessions.Get(context.Background(), "ref-1")
		require.NoError(t, err)
		assert.Equal(t, subscription.SessionActiveSubscription, sess.Status)
	})

	t.Run("payment failure event escalates the profile", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		expires := time.Now().Add(10 * 24 * time.Hour)
		require.NoError(t, f.profiles.Create(context.Background(), &subscription.Profile{
			UserID:                 userID,
			Status:                 subscription.StatusActive,
			ExpiresAt:              &expires,
			ExternalSubscriptionID: "I-200",
		}))

		resp := f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"id": "WH-2",
			"event_type": "SUBSCRIPTION.PAYMENT.FAILED",
			"resource": {"id": "I-200"}
		}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		p, err := f.profiles.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPaymentFailed, p.Status)
		assert.Equal(t, 1, p.PaymentRetryCount)

		// The same delivery again is deduplicated by event identity.
		resp = f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"id": "WH-2",
			"event_type": "SUBSCRIPTION.PAYMENT.FAILED",
			"resource": {"id": "I-200"}
		}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		p, err = f.profiles.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.PaymentRetryCount)
	})

	t.Run("unknown correlation key is still acknowledged", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		resp := f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"event_type": "SUBSCRIPTION.ACTIVATED",
			"resource": {"id": "I-100", "custom_id": "ref-unknown"}
		}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing correlation key is the structural 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		resp := f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"event_type": "SUBSCRIPTION.ACTIVATED",
			"resource": {"id": "I-100"}
		}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		resp := f.do(t, http.MethodPost, "/webhooks/billing", "", `{
			"event_type": "BILLING.PLAN.UPDATED",
			"resource": {"id": "P-1"}
		}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestCheckoutEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/checkout", "", `{"plan_id": "premium-monthly"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data subscription.Checkout `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.Data.Reference)
	assert.Equal(t, "https://processor.test/approve", created.Data.ApprovalURL)

	resp = f.do(t, http.MethodGet, "/checkout/"+created.Data.Reference, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/checkout/no-such-reference", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/checkout", "", `{"plan_id": "no-such-plan"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Anonymous checkouts link to the caller exactly once.
	userID := uuid.NewString()
	resp = f.do(t, http.MethodPost, "/checkout/"+created.Data.Reference+"/link", userID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/checkout/"+created.Data.Reference+"/link", uuid.NewString(), "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/checkout/"+created.Data.Reference+"/link", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("identity required", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		resp := f.do(t, http.MethodGet, "/subscription", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cancel then re-cancel conflicts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		expiry := time.Now().Add(10 * 24 * time.Hour)
		require.NoError(t, f.profiles.Create(context.Background(), &subscription.Profile{
			UserID:    userID,
			Status:    subscription.StatusActive,
			ExpiresAt: &expiry,
		}))

		resp := f.do(t, http.MethodPost, "/subscription/cancel", userID.String(), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.do(t, http.MethodPost, "/subscription/cancel", userID.String(), "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("reactivate past expiry conflicts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		expiry := time.Now().Add(-24 * time.Hour)
		require.NoError(t, f.profiles.Create(context.Background(), &subscription.Profile{
			UserID:    userID,
			Status:    subscription.StatusCancelled,
			ExpiresAt: &expiry,
		}))

		resp := f.do(t, http.MethodPost, "/subscription/reactivate", userID.String(), "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("renew consumes a paid session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		require.NoError(t, f.profiles.Create(context.Background(), &subscription.Profile{
			UserID: userID,
			Status: subscription.StatusExpired,
		}))
		require.NoError(t, f.sessions.Create(context.Background(), &subscription.PaymentSession{
			ExternalReference:      "ref-paid",
			Status:                 subscription.SessionPaid,
			PlanID:                 "premium-monthly",
			PlanType:               catalog.PlanTypeRecurring,
			ExternalSubscriptionID: "I-777",
			ExpiresAt:              time.Now().Add(time.Hour),
		}))

		resp := f.do(t, http.MethodPost, "/subscription/renew", userID.String(), `{"reference": "ref-paid"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var renewed struct {
			Data subscription.Profile `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&renewed))
		assert.Equal(t, subscription.StatusActive, renewed.Data.Status)
		assert.Equal(t, "I-777", renewed.Data.ExternalSubscriptionID)
	})
}

func TestListPlans(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/plans", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data []catalog.Plan `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "premium-monthly", out.Data[0].ID)
}
