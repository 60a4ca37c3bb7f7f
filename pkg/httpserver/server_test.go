package httpserver_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func testConfig(addr string) httpserver.Config {
	return httpserver.Config{Addr: addr, ShutdownTimeout: 2 * time.Second}
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := httpserver.New(testConfig(addr), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(testConfig("256.256.256.256:99999"), nil)
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		h := httpserver.HealthCheckHandler(nil)
		rec := newRecorder(t, h)
		assert.Equal(t, http.StatusOK, rec.status)
		assert.Equal(t, "ALIVE", rec.body)
	})

	t.Run("readiness passes", func(t *testing.T) {
		t.Parallel()

		h := httpserver.HealthCheckHandler(nil, func(context.Context) error { return nil })
		rec := newRecorder(t, h)
		assert.Equal(t, http.StatusOK, rec.status)
		assert.Equal(t, "READY", rec.body)
	})

	t.Run("readiness fails", func(t *testing.T) {
		t.Parallel()

		h := httpserver.HealthCheckHandler(nil, func(context.Context) error { return errors.New("down") })
		rec := newRecorder(t, h)
		assert.Equal(t, http.StatusInternalServerError, rec.status)
		assert.Equal(t, "NOT_READY", rec.body)
	})
}

type recorded struct {
	status int
	body   string
}

func newRecorder(t *testing.T, h http.HandlerFunc) recorded {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
	require.NoError(t, err)

	w := &captureWriter{header: http.Header{}}
	h.ServeHTTP(w, req)
	return recorded{status: w.status, body: w.body}
}

type captureWriter struct {
	header http.Header
	status int
	body   string
}

func (w *captureWriter) Header() http.Header { return w.header }
func (w *captureWriter) WriteHeader(s int)   { w.status = s }
func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body += string(b)
	return len(b), nil
}
