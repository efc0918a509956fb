package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(_ context.Context) error { return nil }

func downCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

// fakePool implements Pinger with a scripted error.
type fakePool struct {
	err error
}

func (f *fakePool) Ping(_ context.Context) error { return f.err }

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestNewCheckDefaults(t *testing.T) {
	c := newCheck("postgres", time.Second, okCheck)

	assert.Equal(t, 3, c.failureThreshold)
	assert.Equal(t, 1, c.successThreshold)
	assert.True(t, c.isHealthy(), "a fresh check starts healthy")
	assert.Nil(t, c.getLastError())
}

func TestCheckThresholds(t *testing.T) {
	ctx := context.Background()

	t.Run("below failure threshold stays healthy", func(t *testing.T) {
		c := newCheck("postgres", time.Second, downCheck("connection refused"))
		c.run(ctx)
		c.run(ctx)
		assert.True(t, c.isHealthy())
	})

	t.Run("at failure threshold flips unhealthy", func(t *testing.T) {
		c := newCheck("postgres", time.Second, downCheck("connection refused"))
		for range 3 {
			c.run(ctx)
		}
		assert.False(t, c.isHealthy())
		assert.EqualError(t, c.getLastError(), "connection refused")
	})

	t.Run("one success recovers", func(t *testing.T) {
		down := true
		c := newCheck("postgres", time.Second, func(_ context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		})
		for range 3 {
			c.run(ctx)
		}
		require.False(t, c.isHealthy())

		down = false
		c.run(ctx)
		assert.True(t, c.isHealthy())
	})
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, okCheck)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeStatus(t, w).Status)
}

func TestLiveEndpointFailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, downCheck("12000 goroutines, threshold 10000"))

	ctx := context.Background()
	for range 3 {
		h.livenessChecks[0].run(ctx)
	}

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "12000 goroutines, threshold 10000", body.Checks["goroutines"])
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, okCheck)

	// Not marked ready yet: checks pass but the gate is closed.
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeStatus(t, w).Checks, "_readiness")

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Draining flips it back.
	h.SetReady(false)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyEndpointOneCheckFailing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, okCheck)
	h.AddReadinessCheck("settings-cache", time.Second, downCheck("stale"))
	h.SetReady(true)

	ctx := context.Background()
	for range 3 {
		h.readinessChecks[1].run(ctx)
	}

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Contains(t, body.Checks, "settings-cache")
	assert.NotContains(t, body.Checks, "postgres")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, okCheck)

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, okCheck)

	h.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// Stop is idempotent.
	h.Stop()
	h.Stop()
}

func TestEndpointsNoChecks(t *testing.T) {
	h := New()
	h.SetReady(true)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, downCheck("err"))
	h.AddReadinessCheck("postgres", time.Second, okCheck)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()

				w := httptest.NewRecorder()
				h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestPingCheck(t *testing.T) {
	pool := &fakePool{}
	check := PingCheck(pool)
	assert.NoError(t, check(context.Background()))

	pool.err = errors.New("connection reset")
	err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold 0")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
