package httpfabric

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/clock"
)

func newTestFabric(cfg Config, clk clock.Clock) *Fabric {
	return New(cfg, clk, testLogger())
}

func TestFabric_SucceedsOnFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Unix(0, 0))
	f := newTestFabric(DefaultConfig(), clk)

	resp, err := f.Do(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestFabric_RetriesOn429WithRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	f := newTestFabric(cfg, clk)

	done := make(chan struct{})
	var resp *resty.Response
	var err error
	go func() {
		resp, err = f.Do(context.Background(), http.MethodGet, srv.URL, nil)
		close(done)
	}()

	// Give the first attempt a chance to land and register the cooldown,
	// then advance the fake clock past Retry-After.
	waitForCalls(t, &calls, 1)
	clk.Advance(2100 * time.Millisecond)

	<-done
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFabric_TerminalOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Unix(0, 0))
	f := newTestFabric(DefaultConfig(), clk)

	_, err := f.Do(context.Background(), http.MethodGet, srv.URL, nil)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, IsTerminal(err))
}

func TestFabric_RateLimiterBlocksOverCapacity(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clk := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.DefaultRate = RateRule{MaxRequests: 1, WindowMS: 1000}
	f := newTestFabric(cfg, clk)

	_, err := f.Do(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = f.Do(context.Background(), http.MethodGet, srv.URL, nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second call should have blocked on the rate limiter")
	case <-time.After(50 * time.Millisecond):
	}

	clk.Advance(1100 * time.Millisecond)
	<-done
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func waitForCalls(t *testing.T, counter *int32, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(counter) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d calls", n)
}
