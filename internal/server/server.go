// Package server exposes the TDS Virtual TA over HTTP. Every question route
// returns the same {answer, links} shape; failures are reported in-band with
// HTTP 200 and a closed error kind.
// The server is started by the `tdsta serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
)

// New constructs a Server answering questions with svc.
func New(svc answerer, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.QuestionTimeout == 0 {
		cfg.QuestionTimeout = 90 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.QuestionTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	if cfg.APIKey == "" {
		log.Warn("server: TDSTA_API_KEY not set, question routes are unauthenticated")
	}

	s := &Server{
		answerer: svc,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("welcome", http.HandlerFunc(s.handleWelcome)))
	mux.Handle("POST /api/{$}", s.instrument("question", protect(s.handleQuestionPost)))
	mux.Handle("POST /ask", s.instrument("question", protect(s.handleQuestionPost)))
	mux.Handle("GET /api/{$}", s.instrument("question", protect(s.handleQuestionGet)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = requestLogger(log, recoverPanics(c.Handler(mux)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the complete handler chain. Tests drive it directly.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleWelcome handles GET / with a usage summary.
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, welcomeResponse{
		Message: "Welcome to the TDS Virtual TA API!",
		Usage:   "Send a POST request to /api/ (or /ask) with your question. Optional: include a base64 image.",
		Example: welcomeExample{
			Question: "What is the use of hybrid RAG in this course?",
			Image:    "<base64-encoded image string (optional)>",
		},
		Docs: "GET /api/?question=... is also accepted; GET /api/health and /api/ready report status.",
	})
}

// handleQuestionPost handles POST /api/ and POST /ask.
func (s *Server) handleQuestionPost(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logging.FromContext(r.Context()).Info("server: rejecting malformed body", slog.Any("error", err))
		s.writeError(w, r, apperr.New(apperr.KindBadRequest, "server.decode", err))
		return
	}
	s.answer(w, r, corpus.Query{Question: req.Question, Image: req.Image})
}

// handleQuestionGet handles GET /api/?question=...
func (s *Server) handleQuestionGet(w http.ResponseWriter, r *http.Request) {
	q := corpus.Query{Question: r.URL.Query().Get("question")}
	if img := r.URL.Query().Get("image"); img != "" {
		q.Image = &img
	}
	s.answer(w, r, q)
}

// answer runs one question under QuestionTimeout and writes either the
// answer or the error envelope.
func (s *Server) answer(w http.ResponseWriter, r *http.Request, q corpus.Query) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QuestionTimeout)
	defer cancel()

	s.metrics.questionsInFlight.Inc()
	defer s.metrics.questionsInFlight.Dec()
	start := time.Now()

	ans, err := s.answerer.Ask(ctx, q)
	outcome := "ok"
	if err != nil {
		outcome = apperr.PublicKind(err)
	}
	s.metrics.questionsTotal.WithLabelValues(outcome).Inc()
	s.metrics.questionDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		logging.FromContext(r.Context()).Error("server: question failed",
			slog.String("kind", outcome),
			slog.Any("error", err),
		)
		s.writeError(w, r, err)
		return
	}
	if ans.Links == nil {
		ans.Links = []corpus.Link{}
	}
	s.writeJSON(w, r, ans)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{"status": "ok"})
}

// writeError writes the in-band error envelope. Raw error text never
// reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeJSON(w, r, errorResponse{Error: apperr.PublicKind(err), Message: apperr.Public(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("server: encode error", slog.Any("error", err))
	}
}
