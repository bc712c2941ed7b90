package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestOpenAI returns an embedder pointed at srv with near-zero backoff.
func newTestOpenAI(srv *httptest.Server, dims int) *OpenAIEmbedder {
	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "sk-test",
		Model:      "text-embedding-3-small",
		Dimensions: dims,
	})
	e.retryInitial = time.Millisecond
	return e
}

func TestOpenAIEmbedder_SendsSingleTextAndAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q, want /embeddings", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Input) != 1 || body.Input[0] != "hello" {
			t.Errorf("input = %v, want [hello]", body.Input)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	vecs, err := newTestOpenAI(srv, 3).Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 3 {
		t.Fatalf("vecs = %v", vecs)
	}
}

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	vecs, err := newTestOpenAI(srv, 0).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vecs = %v, want [[1] [2]]", vecs)
	}
}

func TestOpenAIEmbedder_RateLimitIsTypedAndNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := newTestOpenAI(srv, 0).Embed(context.Background(), []string{"x"})
	wait, ok := AsRateLimit(err)
	if !ok {
		t.Fatalf("AsRateLimit(%v) = false, want true", err)
	}
	if wait != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", wait)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "slow down" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestOpenAIEmbedder_ServerErrorNotRetriedByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestOpenAI(srv, 0).Embed(context.Background(), []string{"x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502 StatusError", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

// countingPacer records how often a retry asked for permission.
type countingPacer struct {
	waits atomic.Int32
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits.Add(1)
	return p.err
}

func TestOpenAIEmbedder_RetriesWaitOnPacer(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	pacer := &countingPacer{}
	e := newTestOpenAI(srv, 2)
	e.maxRetries = 2
	e.pacer = pacer

	if _, err := e.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed() error after retries: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	if n := pacer.waits.Load(); n != 2 {
		t.Errorf("pacer waits = %d, want one per repeat (2)", n)
	}
}

func TestOpenAIEmbedder_PacerErrorStopsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestOpenAI(srv, 0)
	e.maxRetries = 5
	e.pacer = &countingPacer{err: context.Canceled}

	if _, err := e.Embed(context.Background(), []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want the pacer's error", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestOpenAIEmbedder_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestOpenAI(srv, 0)
	e.maxRetries = 2

	_, err := e.Embed(context.Background(), []string{"x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503 StatusError", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestOpenAIEmbedder_RejectsBadVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		dims int
		want error
	}{
		{"empty vector", `{"data":[{"index":0,"embedding":[]}]}`, 0, ErrEmptyEmbedding},
		{"wrong dims", `{"data":[{"index":0,"embedding":[1,2]}]}`, 3, ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestOpenAI(srv, tt.dims).Embed(context.Background(), []string{"x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenAIEmbedder_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := newTestOpenAI(srv, 0).Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
