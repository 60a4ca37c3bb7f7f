package feed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/modules/feed"
	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/subscription"
	"github.com/quillpost/quillpost/pkg/viewquota"
)

type stubSearcher struct {
	results []feed.SearchResult
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int) ([]feed.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, nil
}

type stubGateway struct{}

func (stubGateway) CreatePlan(context.Context, billing.PlanRequest) (string, error) { return "P", nil }
func (stubGateway) CreateSubscription(context.Context, string, string) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{SubscriptionID: "I", ApprovalURL: "u"}, nil
}
func (stubGateway) CancelSubscription(context.Context, string, string) error { return nil }
func (stubGateway) GetSubscriptionStatus(context.Context, string) (*billing.SubscriptionStatus, error) {
	return &billing.SubscriptionStatus{}, nil
}
func (stubGateway) GetSale(context.Context, string) (*billing.Sale, error) {
	return &billing.Sale{State: "completed"}, nil
}

type fixture struct {
	profiles subscription.ProfileStore
	searcher *stubSearcher
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	plans, err := catalog.New(context.Background(), catalog.NewInMemSource(catalog.Plan{
		ID:       "premium-monthly",
		Name:     "Premium Monthly",
		Price:    catalog.Money{Amount: 500, Currency: "USD"},
		Interval: catalog.BillingIntervalMonthly,
		Type:     catalog.PlanTypeRecurring,
	}))
	require.NoError(t, err)

	profiles := subscription.NewMemoryProfileStore()
	svc := subscription.NewService(profiles, subscription.NewMemorySessionStore(), stubGateway{}, plans)

	quotaCfg := viewquota.Config{Limit: 2, Window: time.Hour, CookieName: "qp_visitor"}
	searcher := &stubSearcher{results: []feed.SearchResult{{ID: "post-1", Title: "Hello"}}}

	srv := httptest.NewServer(feed.Router(feed.RouterOptions{
		Service:  svc,
		Searcher: searcher,
		Quota:    viewquota.Middleware(viewquota.NewMemoryCounter(quotaCfg.Window), quotaCfg, nil),
	}))
	t.Cleanup(srv.Close)

	return &fixture{profiles: profiles, searcher: searcher, server: srv}
}

func (f *fixture) get(t *testing.T, path, userID string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) seedProfile(t *testing.T, status subscription.Status, expiresIn time.Duration) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	expiry := time.Now().Add(expiresIn)
	require.NoError(t, f.profiles.Create(context.Background(), &subscription.Profile{
		UserID:    userID,
		Status:    status,
		ExpiresAt: &expiry,
	}))
	return userID
}

func TestSearchGate(t *testing.T) {
	t.Parallel()

	t.Run("active subscriber searches", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusActive, time.Hour)

		resp := f.get(t, "/search?q=hello", userID.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Data []feed.SearchResult `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Len(t, out.Data, 1)
		assert.Equal(t, "post-1", out.Data[0].ID)
	})

	t.Run("grace period subscriber cannot search", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusGracePeriod, time.Hour)

		resp := f.get(t, "/search?q=hello", userID.String())
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})

	t.Run("cancelled subscriber keeps search inside the window", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusCancelled, time.Hour)

		resp := f.get(t, "/search?q=hello", userID.String())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("anonymous cannot search", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		resp := f.get(t, "/search?q=hello", "")
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})

	t.Run("missing query", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusActive, time.Hour)

		resp := f.get(t, "/search", userID.String())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPostAccess(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, resp *http.Response) (out struct {
		Data struct {
			Access    bool  `json:"access"`
			Truncated bool  `json:"truncated"`
			Views     int64 `json:"views"`
		} `json:"data"`
	}) {
		t.Helper()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	t.Run("subscriber with read access", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusPaymentFailed, time.Hour)

		resp := f.get(t, "/posts/p1/access", userID.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode(t, resp)
		assert.True(t, out.Data.Access, "payment-failed subscribers keep read access")
		assert.False(t, out.Data.Truncated)
	})

	t.Run("expired subscriber is truncated", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := f.seedProfile(t, subscription.StatusExpired, -time.Hour)

		resp := f.get(t, "/posts/p1/access", userID.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode(t, resp)
		assert.False(t, out.Data.Access)
		assert.True(t, out.Data.Truncated)
	})

	t.Run("anonymous visitor exhausts the quota", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		visitor := &http.Cookie{Name: "qp_visitor", Value: "vis-1"}

		for i := 0; i < 2; i++ {
			resp := f.get(t, "/posts/p1/access", "", visitor)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			out := decode(t, resp)
			assert.True(t, out.Data.Access, "view %d within quota", i+1)
		}

		resp := f.get(t, "/posts/p1/access", "", visitor)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode(t, resp)
		assert.False(t, out.Data.Access, "third view exceeds a limit of 2")
		assert.True(t, out.Data.Truncated)
		assert.Equal(t, int64(3), out.Data.Views)
	})
}
