package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed QuestionTimeout.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QuestionTimeout bounds retrieval plus generation for one question
	// (default: 90s).
	QuestionTimeout time.Duration
	// MaxBodyBytes caps the JSON body of a question (default: 10 MiB, room
	// for a base64 image).
	MaxBodyBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the question
	// routes (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the question routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface the question handlers call.
// *qa.Service satisfies it; tests inject a fake.
type answerer interface {
	Ask(ctx context.Context, q corpus.Query) (corpus.Answer, error)
}

// Server is the HTTP server that exposes the question-answering service.
type Server struct {
	// answerer answers questions.
	answerer answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// handler is the fully wrapped handler chain.
	handler http.Handler
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// questionRequest is the JSON body for POST /api/ and POST /ask.
type questionRequest struct {
	// Question is the student's question.
	Question string `json:"question"`
	// Image is an optional base64 image, accepted and passed through.
	Image *string `json:"image"`
}

// errorResponse is the payload for a failed question. It is sent with
// HTTP 200 so clients only ever parse one envelope.
type errorResponse struct {
	// Error is the failure kind, e.g. "retrieval" or "bad_request".
	Error string `json:"error"`
	// Message is a fixed, user-safe explanation.
	Message string `json:"message"`
}

// welcomeResponse is the payload for GET /.
type welcomeResponse struct {
	Message string         `json:"message"`
	Usage   string         `json:"usage"`
	Example welcomeExample `json:"example"`
	Docs    string         `json:"docs"`
}

type welcomeExample struct {
	Question string `json:"question"`
	Image    string `json:"image"`
}
