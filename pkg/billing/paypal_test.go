package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/pkg/billing"
)

// newTestGateway spins up a stub processor that answers the OAuth token
// exchange and delegates everything else to handler.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *billing.PayPalGateway {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gw, err := billing.NewPayPalGateway(billing.Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ReturnURL:    "https://quillpost.test/billing/return",
		CancelURL:    "https://quillpost.test/billing/cancel",
	}, nil)
	require.NoError(t, err)
	return gw
}

func TestPayPalGateway_CreateSubscription(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/billing/subscriptions", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-abc", req["custom_id"])
		assert.Equal(t, "P-123", req["plan_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "I-SUB1",
			"links": []map[string]string{
				{"rel": "self", "href": "https://processor.test/self"},
				{"rel": "approve", "href": "https://processor.test/approve"},
			},
		})
	})

	session, err := gw.CreateSubscription(context.Background(), "ref-abc", "P-123")
	require.NoError(t, err)
	assert.Equal(t, "I-SUB1", session.SubscriptionID)
	assert.Equal(t, "https://processor.test/approve", session.ApprovalURL)
}

func TestPayPalGateway_CancelSubscription(t *testing.T) {
	t.Parallel()

	t.Run("204 means success", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/billing/subscriptions/I-SUB1/cancel", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, gw.CancelSubscription(context.Background(), "I-SUB1", "user requested"))
	})

	t.Run("other statuses are rejections", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		})

		err := gw.CancelSubscription(context.Background(), "I-SUB1", "user requested")
		assert.ErrorIs(t, err, billing.ErrCancelRejected)
	})
}

func TestPayPalGateway_GetSale(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/sale/SALE-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "SALE-1", "state": "completed"})
	})

	sale, err := gw.GetSale(context.Background(), "SALE-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", sale.State)
}

func TestPayPalGateway_VerifyWebhook_SkippedWithoutWebhookID(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no processor call expected when webhook ID is not configured")
	})

	ok, err := gw.VerifyWebhook(context.Background(), http.Header{}, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, ok)
}
