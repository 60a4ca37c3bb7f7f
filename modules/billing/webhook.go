package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/quillpost/quillpost/core"
	processor "github.com/quillpost/quillpost/pkg/billing"
)

// maxWebhookBody bounds how much of a delivery is read. Processor events are
// small; anything larger is not one of ours.
const maxWebhookBody = 1 << 20

// webhook ingests a processor delivery. The contract with the processor:
// 400 only for structurally invalid payloads (so it stops redelivering
// garbage), 5xx only for infrastructure failures (so it redelivers), 200
// for everything else including business no-ops.
func (h *handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	if h.verifier != nil {
		ok, err := h.verifier.VerifyWebhook(r.Context(), r.Header, payload)
		if err != nil {
			h.log.ErrorContext(r.Context(), "webhook signature verification unavailable", "error", err)
			core.JSONError(w, core.ErrServiceUnavailable)
			return
		}
		if !ok {
			h.log.WarnContext(r.Context(), "webhook signature rejected")
			core.JSONError(w, core.ErrBadRequest)
			return
		}
	}

	event, err := processor.ParseEvent(payload)
	if err != nil {
		// Structural failures are the only 400s on this endpoint.
		if errors.Is(err, processor.ErrMissingCorrelationKey) || errors.Is(err, processor.ErrMalformedEvent) {
			h.log.WarnContext(r.Context(), "structurally invalid webhook", "error", err)
			core.JSONError(w, err)
			return
		}
		core.JSONError(w, err)
		return
	}

	if err := h.rec.Apply(r.Context(), *event); err != nil {
		h.log.ErrorContext(r.Context(), "webhook apply failed, requesting redelivery",
			"event_id", event.ID, "type", event.Type, "error", err)
		core.JSONError(w, core.ErrServiceUnavailable)
		return
	}

	core.JSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
