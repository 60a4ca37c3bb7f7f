package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillpost/quillpost/binder"
	"github.com/quillpost/quillpost/core"
	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/subscription"
)

type handler struct {
	svc      subscription.Service
	rec      *subscription.Reconciler
	plans    *catalog.Catalog
	verifier WebhookVerifier
	log      *slog.Logger
}

func (h *handler) listPlans(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, http.StatusOK, h.plans.Public())
}

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (h *handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := binder.JSON(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}
	if req.PlanID == "" {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	checkout, err := h.svc.StartCheckout(r.Context(), OptionalUser(r), req.PlanID)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusCreated, checkout)
}

func (h *handler) validateCheckout(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	session, err := h.svc.ValidateSession(r.Context(), reference)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, session)
}

// linkCheckout attaches an anonymous checkout session to the caller, for
// the visitor-pays-then-registers flow. Linking is one-way.
func (h *handler) linkCheckout(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	userID, _ := UserFromContext(r.Context())

	if err := h.svc.LinkSession(r.Context(), reference, userID); err != nil {
		core.JSONError(w, err)
		return
	}

	session, err := h.svc.ValidateSession(r.Context(), reference)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, session)
}

func (h *handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, profile)
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if err := h.svc.Cancel(r.Context(), userID); err != nil {
		core.JSONError(w, err)
		return
	}

	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, profile)
}

func (h *handler) reactivate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if err := h.svc.Reactivate(r.Context(), userID); err != nil {
		core.JSONError(w, err)
		return
	}

	profile, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, profile)
}

type renewRequest struct {
	Reference string `json:"reference"`
}

func (h *handler) renew(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := binder.JSON(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}
	if req.Reference == "" {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	userID, _ := UserFromContext(r.Context())
	profile, err := h.svc.Renew(r.Context(), userID, req.Reference)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, profile)
}
