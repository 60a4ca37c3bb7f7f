package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/subscription"
)

// WebhookVerifier confirms a webhook delivery's signature with the
// processor. Implemented by the billing gateway; nil disables verification.
type WebhookVerifier interface {
	VerifyWebhook(ctx context.Context, headers http.Header, payload []byte) (bool, error)
}

// RouterOptions carries the module dependencies.
type RouterOptions struct {
	Service    subscription.Service
	Reconciler *subscription.Reconciler
	Plans      *catalog.Catalog
	Verifier   WebhookVerifier // optional
	Logger     *slog.Logger    // optional
}

// Router mounts the billing surface: the processor webhook endpoint and the
// user-facing subscription operations.
//
//	r.Mount("/", billing.Router(billing.RouterOptions{...}))
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("billing: subscription.Service is required")
	}
	if opts.Reconciler == nil {
		panic("billing: subscription.Reconciler is required")
	}
	if opts.Plans == nil {
		panic("billing: plan catalog is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &handler{
		svc:      opts.Service,
		rec:      opts.Reconciler,
		plans:    opts.Plans,
		verifier: opts.Verifier,
		log:      opts.Logger,
	}

	r := chi.NewRouter()

	r.Post("/webhooks/billing", h.webhook)

	r.Get("/plans", h.listPlans)
	r.Post("/checkout", h.startCheckout)
	r.Get("/checkout/{reference}", h.validateCheckout)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/checkout/{reference}/link", h.linkCheckout)
		r.Get("/subscription", h.getSubscription)
		r.Post("/subscription/cancel", h.cancel)
		r.Post("/subscription/reactivate", h.reactivate)
		r.Post("/subscription/renew", h.renew)
	})

	return r
}
