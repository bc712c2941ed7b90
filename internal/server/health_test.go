package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger is a Pinger whose result is fixed.
type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// newTestServer builds a bare *Server for handler-level tests.
func newTestServer() *Server {
	return &Server{cfg: &Config{}}
}

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestServer().handleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	cases := []struct {
		name      string
		pingers   []Pinger
		wantCode  int
		wantReady bool
		wantOK    map[string]bool
	}{
		{name: "no probes", wantCode: http.StatusOK, wantReady: true, wantOK: map[string]bool{}},
		{
			name:      "all healthy",
			pingers:   []Pinger{&fakePinger{name: "qdrant"}, &fakePinger{name: "redis"}, &fakePinger{name: "llm:openai"}},
			wantCode:  http.StatusOK,
			wantReady: true,
			wantOK:    map[string]bool{"qdrant": true, "redis": true, "llm:openai": true},
		},
		{
			name:      "redis down",
			pingers:   []Pinger{&fakePinger{name: "qdrant"}, &fakePinger{name: "redis", err: refused}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    map[string]bool{"qdrant": true, "redis": false},
		},
		{
			name:      "everything down",
			pingers:   []Pinger{&fakePinger{name: "qdrant", err: refused}, &fakePinger{name: "llm:ollama", err: context.DeadlineExceeded}},
			wantCode:  http.StatusServiceUnavailable,
			wantReady: false,
			wantOK:    map[string]bool{"qdrant": false, "llm:ollama": false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer()
			s.pingers = tc.pingers
			w := httptest.NewRecorder()
			s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantCode, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var resp readyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Ready != tc.wantReady {
				t.Errorf("ready = %v, want %v", resp.Ready, tc.wantReady)
			}
			if len(resp.Checks) != len(tc.wantOK) {
				t.Fatalf("checks = %d, want %d", len(resp.Checks), len(tc.wantOK))
			}
			for i, c := range resp.Checks {
				if c.Name != tc.pingers[i].Name() {
					t.Errorf("check %d = %q, want registration order", i, c.Name)
				}
				if c.OK != tc.wantOK[c.Name] {
					t.Errorf("check %q ok = %v", c.Name, c.OK)
				}
				if !c.OK && c.Error == "" {
					t.Errorf("check %q: failing probe without error text", c.Name)
				}
			}
		})
	}
}

func TestDependencyPinger_WrapsName(t *testing.T) {
	t.Parallel()

	p := NewDependencyPinger("redis", &fakePinger{err: errors.New("refused")})
	if p.Name() != "redis" {
		t.Errorf("Name() = %q", p.Name())
	}
	err := p.Ping(context.Background())
	if err == nil || err.Error() != "redis: refused" {
		t.Errorf("Ping() = %v, want %q", err, "redis: refused")
	}
}
