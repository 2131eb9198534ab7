package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apimgr/idealista/src/cache"
	"github.com/apimgr/idealista/src/model"
)

// sleepRecorder captures backoff delays without actually waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) fn(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy(attempts int, rec *sleepRecorder) RetryPolicy {
	p := DefaultRetryPolicy().WithAttempts(attempts)
	p.Sleep = rec.fn
	return p
}

func newTestClient(t *testing.T, baseURL string, store cache.Store, policy RetryPolicy) *Client {
	t.Helper()
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return NewClient(
		model.Credentials{APIKey: "key", APISecret: "secret"},
		store,
		WithBaseURL(baseURL),
		WithLogger(quietLogger()),
		WithRetryPolicy(policy),
	)
}

func getRequest(t *testing.T, url string) func() (*http.Request, error) {
	t.Helper()
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestExecuteSuccess(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	body, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if len(rec.delays) != 0 {
		t.Errorf("slept %v on a clean success", rec.delays)
	}
}

func TestExecuteRetryExhaustion(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	_, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if !errors.Is(err, model.ErrTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
	if hits != 3 {
		t.Errorf("hits = %d, want exactly 3 attempts", hits)
	}

	var reqErr *model.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatal("error is not a *RequestError")
	}
	if reqErr.Status != http.StatusServiceUnavailable || reqErr.Attempts != 3 {
		t.Errorf("got status %d after %d attempts, want 503 after 3", reqErr.Status, reqErr.Attempts)
	}
}

func TestExecuteBackoffDoubles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(4, rec))

	c.execute(context.Background(), getRequest(t, srv.URL))

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i, d := range want {
		if rec.delays[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], d)
		}
	}
}

func TestExecuteSucceedsAfterRetry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	body, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("body = %q", body)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestExecuteHonorsRetryAfter(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	if _, err := c.execute(context.Background(), getRequest(t, srv.URL)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rec.delays) != 1 || rec.delays[0] != 2*time.Second {
		t.Errorf("delays = %v, want [2s] from the Retry-After header", rec.delays)
	}
}

func TestExecuteRateLimitExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(2, rec))

	_, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if !errors.Is(err, model.ErrRateLimited) {
		t.Errorf("err = %v, want rate-limited", err)
	}
}

func TestExecuteFatalStatusNoRetry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	_, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if !errors.Is(err, model.ErrFatalRequest) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (no retry on 4xx)", hits)
	}
	if len(rec.delays) != 0 {
		t.Errorf("slept %v before a fatal error", rec.delays)
	}
}

func TestExecuteUnauthorizedNoRetry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	_, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if !errors.Is(err, model.ErrAuth) {
		t.Fatalf("err = %v, want auth", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (401 surfaces immediately)", hits)
	}
}

func TestExecuteNetworkErrorRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails to connect

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, nil, testPolicy(3, rec))

	_, err := c.execute(context.Background(), getRequest(t, srv.URL))
	if !errors.Is(err, model.ErrTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
	if len(rec.delays) != 2 {
		t.Errorf("slept %d times, want 2 for 3 attempts", len(rec.delays))
	}
}

func TestNextDelayCap(t *testing.T) {
	if d := nextDelay(20*time.Second, 30*time.Second); d != 30*time.Second {
		t.Errorf("nextDelay(20s) = %v, want the 30s cap", d)
	}
	if d := nextDelay(4*time.Second, 30*time.Second); d != 8*time.Second {
		t.Errorf("nextDelay(4s) = %v, want 8s", d)
	}
}

func TestRetryAfterParsing(t *testing.T) {
	max := 2 * time.Minute
	h := http.Header{}
	if d := retryAfter(h, max); d != 0 {
		t.Errorf("absent header = %v, want 0", d)
	}

	h.Set("Retry-After", "5")
	if d := retryAfter(h, max); d != 5*time.Second {
		t.Errorf("Retry-After 5 = %v, want 5s", d)
	}

	h.Set("Retry-After", "600")
	if d := retryAfter(h, max); d != max {
		t.Errorf("Retry-After 600 = %v, want the %v cap", d, max)
	}

	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	if d := retryAfter(h, max); d != 0 {
		t.Errorf("unparseable header = %v, want 0", d)
	}
}
