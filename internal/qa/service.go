// Package qa answers a course question end to end: retrieve ranked hits,
// synthesise an answer from them, and attach one citation per hit. It is the
// only entry point the HTTP server and the ask command use.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/cache"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
	"github.com/Tejaswini050302/TDS-Project-1/internal/rag"
	"github.com/Tejaswini050302/TDS-Project-1/internal/store"
)

// FallbackAnswer is returned when retrieval finds nothing.
const FallbackAnswer = "Sorry, I couldn't find any relevant information."

// LinkText is the label attached to every citation.
const LinkText = "Relevant link"

// state names the steps of Ask, logged at debug level.
type state string

const (
	stateReceived           state = "RECEIVED"
	stateRetrieving         state = "RETRIEVING"
	stateEmpty              state = "EMPTY"
	stateRespondingFallback state = "RESPONDING_FALLBACK"
	stateSynthesizing       state = "SYNTHESIZING"
	stateResponding         state = "RESPONDING"
)

// Synthesizer generates an answer from ranked hits.
type Synthesizer interface {
	Answer(ctx context.Context, question string, hits []corpus.Hit) (string, error)
}

// Config holds the collaborators of a Service. Cache and QueryLog are
// optional.
type Config struct {
	Retriever   rag.Retriever
	Synthesizer Synthesizer
	Cache       cache.Cache
	QueryLog    store.QueryLog
	// TopK is the number of hits requested per question. Zero lets the
	// retriever apply its default.
	TopK int
}

// Service is safe for concurrent use; every request carries its own context.
type Service struct {
	cfg Config
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("qa: Retriever must not be nil")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("qa: Synthesizer must not be nil")
	}
	return &Service{cfg: cfg}, nil
}

// Ask answers q. An empty question fails with apperr.ErrEmptyQuestion before
// any downstream call. Zero hits produce FallbackAnswer without calling the
// synthesizer. Retrieval and generation failures are returned classified by
// apperr.Kind.
func (s *Service) Ask(ctx context.Context, q corpus.Query) (corpus.Answer, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	question := strings.TrimSpace(q.Question)
	log.Debug("qa: transition", slog.String("state", string(stateReceived)),
		slog.Bool("image", q.Image != nil && *q.Image != ""))
	if question == "" {
		return corpus.Answer{}, apperr.New(apperr.KindBadRequest, "qa.ask", apperr.ErrEmptyQuestion)
	}

	if ans, ok := s.cached(ctx, question); ok {
		s.record(ctx, question, store.OutcomeCached, nil, len(ans.Links), start)
		return ans, nil
	}

	log.Debug("qa: transition", slog.String("state", string(stateRetrieving)))
	hits, err := s.cfg.Retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		err = apperr.Wrap(apperr.KindRetrieval, "qa.retrieve", err)
		s.record(ctx, question, store.OutcomeError, err, 0, start)
		return corpus.Answer{}, err
	}

	if len(hits) == 0 {
		log.Debug("qa: transition", slog.String("state", string(stateEmpty)))
		log.Debug("qa: transition", slog.String("state", string(stateRespondingFallback)))
		s.record(ctx, question, store.OutcomeFallback, nil, 0, start)
		return corpus.Answer{Answer: FallbackAnswer, Links: []corpus.Link{}}, nil
	}

	log.Debug("qa: transition", slog.String("state", string(stateSynthesizing)), slog.Int("hits", len(hits)))
	text, err := s.cfg.Synthesizer.Answer(ctx, question, hits)
	if err != nil {
		err = apperr.Wrap(apperr.KindGeneration, "qa.synthesize", err)
		s.record(ctx, question, store.OutcomeError, err, 0, start)
		return corpus.Answer{}, err
	}

	ans := corpus.Answer{Answer: text, Links: Links(hits)}
	log.Debug("qa: transition", slog.String("state", string(stateResponding)), slog.Int("links", len(ans.Links)))

	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.Set(ctx, question, ans); err != nil {
			log.Warn("qa: answer cache write failed", slog.Any("error", err))
		}
	}
	s.record(ctx, question, store.OutcomeAnswered, nil, len(ans.Links), start)
	return ans, nil
}

// Links returns one citation per hit in rank order.
func Links(hits []corpus.Hit) []corpus.Link {
	links := make([]corpus.Link, 0, len(hits))
	for _, h := range hits {
		links = append(links, corpus.Link{URL: h.Source, Text: LinkText})
	}
	return links
}

func (s *Service) cached(ctx context.Context, question string) (corpus.Answer, bool) {
	if s.cfg.Cache == nil {
		return corpus.Answer{}, false
	}
	ans, ok, err := s.cfg.Cache.Get(ctx, question)
	if err != nil {
		logging.FromContext(ctx).Warn("qa: answer cache read failed", slog.Any("error", err))
		return corpus.Answer{}, false
	}
	return ans, ok
}

// record appends to the query log. Failures are logged and ignored.
func (s *Service) record(ctx context.Context, question string, outcome store.Outcome, cause error, links int, start time.Time) {
	if s.cfg.QueryLog == nil {
		return
	}
	rec := store.QueryRecord{
		Question: question,
		Outcome:  outcome,
		Links:    links,
		Latency:  time.Since(start),
	}
	if cause != nil {
		rec.ErrorKind = apperr.PublicKind(cause)
	}
	// The request context may already be cancelled or past its deadline.
	if err := s.cfg.QueryLog.Append(context.WithoutCancel(ctx), rec); err != nil {
		logging.FromContext(ctx).Warn("qa: query log append failed", slog.Any("error", err))
	}
}
