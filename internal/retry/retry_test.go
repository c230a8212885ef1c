package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordSleeper struct {
	delays []time.Duration
}

func (s *recordSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func doRequest(t *testing.T, client *http.Client, url string) func(ctx context.Context) (*http.Response, []byte, error) {
	t.Helper()
	return func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return nil, nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, nil, err
		}
		return resp, body, nil
	}
}

func testPolicy(sleep *recordSleeper, attempts int) Policy {
	return Policy{
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     2.0,
		MaxAttempts:    attempts,
		JitterFraction: 0.30,
		SnippetLimit:   200,
		Sleep:          sleep.Sleep,
		Rand:           func() float64 { return 0.5 },
	}
}

func TestRetryOn429UntilExhausted(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limit"))
	}))
	t.Cleanup(server.Close)

	sleep := &recordSleeper{}
	_, _, err := DoHTTP(context.Background(), testPolicy(sleep, 3), nil, doRequest(t, server.Client(), server.URL))

	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected wrapped 429 status error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(sleep.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleep.delays))
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("done"))
	}))
	t.Cleanup(server.Close)

	sleep := &recordSleeper{}
	resp, body, err := DoHTTP(context.Background(), testPolicy(sleep, 3), nil, doRequest(t, server.Client(), server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(body) != "done" {
		t.Fatalf("unexpected body: %s", body)
	}
	if len(sleep.delays) != 1 || sleep.delays[0] != 2*time.Second {
		t.Fatalf("expected one 2s sleep from Retry-After, got %v", sleep.delays)
	}
}

func TestNoRetryOn400(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad input"))
	}))
	t.Cleanup(server.Close)

	sleep := &recordSleeper{}
	resp, body, err := DoHTTP(context.Background(), testPolicy(sleep, 3), nil, doRequest(t, server.Client(), server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 passed through, got %d", resp.StatusCode)
	}
	if string(body) != "bad input" {
		t.Fatalf("unexpected body: %s", body)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
	if len(sleep.delays) != 0 {
		t.Fatalf("expected no sleeps, got %v", sleep.delays)
	}
}

func TestCanceledContextStopsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sleep := &recordSleeper{}
	_, _, err := DoHTTP(ctx, testPolicy(sleep, 3), nil, doRequest(t, server.Client(), server.URL))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	policy := withDefaults(Policy{
		BaseDelay:  time.Second,
		MaxDelay:   4 * time.Second,
		Multiplier: 2.0,
	})

	cases := []struct {
		index int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 4 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.backoffDelay(tc.index); got != tc.want {
			t.Fatalf("backoffDelay(%d) = %s, want %s", tc.index, got, tc.want)
		}
	}
}
