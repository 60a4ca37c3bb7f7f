package core_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillpost/quillpost/core"
	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/subscription"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKey  string
	}{
		{"profile not found", subscription.ErrProfileNotFound, http.StatusNotFound, "not_found"},
		{"re-cancel conflict", subscription.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{"reactivate past expiry", subscription.ErrReactivateExpired, http.StatusConflict, "subscription_expired"},
		{"expired session", subscription.ErrSessionExpired, http.StatusGone, "session_expired"},
		{"missing correlation key", billing.ErrMissingCorrelationKey, http.StatusBadRequest, "missing_correlation_key"},
		{"wrapped sentinel", fmt.Errorf("context: %w", subscription.ErrSessionNotPaid), http.StatusConflict, "session_not_paid"},
		{"http error passthrough", core.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := core.MapError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}
