package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, MaxRetries: retries}}
	nm := NewAsyncNetworkManager(cfg, logger.NewNopLogger("net"))
	nm.backoff = func(int) time.Duration { return time.Millisecond }
	return nm
}

func TestGet_PassesParamsAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5m", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newTestManager(0).Get(context.Background(), srv.URL+"/chart", map[string]string{"interval": "5m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	body, err := newTestManager(2).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestManager(3).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var netErr *helpers.NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_HonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestManager(0).Get(ctx, srv.URL, nil)
	assert.Error(t, err)
}

// slowServer answers after a delay and records the peak number of requests
// it was serving at once.
func slowServer(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(delay)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &peak
}

func getAll(nm *AsyncNetworkManager, url string, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = nm.Get(context.Background(), url, nil)
		}()
	}
	wg.Wait()
}

func TestGet_CapsConcurrentRequests(t *testing.T) {
	srv, peak := slowServer(t, 50*time.Millisecond)

	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, ConcurrentRequests: 3}}
	nm := NewAsyncNetworkManager(cfg, logger.NewNopLogger("net"))

	getAll(nm, srv.URL, 9)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(2))
}

func TestGet_BurstCoversConcurrentRequests(t *testing.T) {
	srv, peak := slowServer(t, 100*time.Millisecond)

	// one token per second, but a full round of concurrent requests may start at once
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, RequestsPerSecond: 1, ConcurrentRequests: 4}}
	nm := NewAsyncNetworkManager(cfg, logger.NewNopLogger("net"))

	start := time.Now()
	getAll(nm, srv.URL, 4)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.GreaterOrEqual(t, peak.Load(), int32(2))
}
