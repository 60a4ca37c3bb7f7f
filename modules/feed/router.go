package feed

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillpost/quillpost/core"
	"github.com/quillpost/quillpost/modules/billing"
	"github.com/quillpost/quillpost/pkg/subscription"
	"github.com/quillpost/quillpost/pkg/viewquota"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// RouterOptions carries the module dependencies.
type RouterOptions struct {
	Service  subscription.Service
	Searcher Searcher
	Quota    func(http.Handler) http.Handler // viewquota.Middleware; optional
	Logger   *slog.Logger                    // optional
}

// Router mounts the feed surface: gated search and the per-post access
// decision endpoint consumed by the rendering layer.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("feed: subscription.Service is required")
	}
	if opts.Searcher == nil {
		panic("feed: Searcher is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &handler{svc: opts.Service, searcher: opts.Searcher, log: opts.Logger}

	r := chi.NewRouter()
	r.Get("/search", h.search)

	r.Group(func(r chi.Router) {
		if opts.Quota != nil {
			r.Use(opts.Quota)
		}
		r.Get("/posts/{id}/access", h.postAccess)
	})
	return r
}

type handler struct {
	svc      subscription.Service
	searcher Searcher
	log      *slog.Logger
}

// search uses the strict interaction gate: subscribers in billing trouble
// can still read, but search is a premium interaction.
func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	userID := billing.OptionalUser(r)
	profile := h.profileOrNil(r, userID)
	if !subscription.CanInteract(profile, time.Now().UTC()) {
		core.JSONError(w, core.ErrPaymentRequired)
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			core.JSONError(w, core.ErrBadRequest)
			return
		}
		limit = n
	}

	results, err := h.searcher.Search(r.Context(), query, limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "post search failed", "error", err)
		core.JSONError(w, core.ErrServiceUnavailable)
		return
	}
	core.JSONWithMeta(w, http.StatusOK, results, map[string]any{"query": query, "count": len(results)})
}

// accessDecision is what the rendering layer needs to pick between full and
// truncated post views.
type accessDecision struct {
	PostID    string `json:"post_id"`
	Access    bool   `json:"access"`
	Truncated bool   `json:"truncated"`
	Views     int64  `json:"views,omitempty"`
}

// postAccess applies the permissive read gate for subscribers and the view
// quota for anonymous visitors.
func (h *handler) postAccess(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	userID := billing.OptionalUser(r)

	decision := accessDecision{PostID: postID}
	if profile := h.profileOrNil(r, userID); profile != nil {
		decision.Access = subscription.HasAccess(profile, time.Now().UTC())
		decision.Truncated = !decision.Access
	} else {
		allowance := viewquota.FromContext(r.Context())
		decision.Views = allowance.Views
		decision.Access = !allowance.Exceeded
		decision.Truncated = allowance.Exceeded
	}

	core.JSON(w, http.StatusOK, decision)
}

// profileOrNil resolves the caller's profile; anonymous callers and callers
// without a profile record get nil, which both gates treat as no access.
func (h *handler) profileOrNil(r *http.Request, userID uuid.UUID) *subscription.Profile {
	if userID == uuid.Nil {
		return nil
	}
	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, subscription.ErrProfileNotFound) {
			h.log.ErrorContext(r.Context(), "profile lookup failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return profile
}
