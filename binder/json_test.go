package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/binder"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Reference string `json:"reference"`
	}

	newRequest := func(body, contentType string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req
	}

	t.Run("decodes a valid body", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{"reference": "ref-1"}`, "application/json"), &v)
		require.NoError(t, err)
		assert.Equal(t, "ref-1", v.Reference)
	})

	t.Run("accepts charset parameter", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{"reference": "ref-1"}`, "application/json; charset=utf-8"), &v)
		assert.NoError(t, err)
	})

	t.Run("missing content type", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{}`, ""), &v)
		assert.ErrorIs(t, err, binder.ErrMissingContentType)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{}`, "text/plain"), &v)
		assert.ErrorIs(t, err, binder.ErrUnsupportedMediaType)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{"reference": "r", "extra": true}`, "application/json"), &v)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest("", "application/json"), &v)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
	})

	t.Run("trailing data rejected", func(t *testing.T) {
		t.Parallel()

		var v payload
		err := binder.JSON(newRequest(`{"reference": "r"}{"again": 1}`, "application/json"), &v)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
	})
}
