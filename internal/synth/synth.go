// Package synth turns a question and its retrieved contexts into one
// chat-completion call. Contexts are packed under a token budget in rank
// order, and transient provider failures are retried a bounded number of
// times.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/budget"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// SystemPrompt is sent with every question.
const SystemPrompt = "You are a helpful assistant for the IIT Madras TDS course. Use only the context provided."

const (
	// DefaultTimeout bounds one answer, retries included.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryInitial is the first backoff interval.
	DefaultRetryInitial = time.Second
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Config holds the dependencies and limits of a Synthesizer.
type Config struct {
	// Model is the chat model built by the provider package.
	Model model.BaseChatModel
	// ModelName is reported in logs.
	ModelName string
	// MaxContextTokens is the input budget. Defaults to
	// budget.DefaultMaxContextTokens.
	MaxContextTokens int
	// Timeout bounds one Answer call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxRetries caps retries of transient failures. Negative disables
	// retries; zero means DefaultMaxRetries.
	MaxRetries int
	// RetryInitial is the first backoff interval. Defaults to
	// DefaultRetryInitial.
	RetryInitial time.Duration
	// Log receives truncation and retry events. Defaults to slog.Default.
	Log *slog.Logger
}

// Synthesizer produces answers grounded in retrieved contexts.
type Synthesizer struct {
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
	cfg      Config
}

// New compiles the generation chain around cfg.Model. Running the model
// inside a chain lets globally registered callbacks (tracing) observe it.
func New(ctx context.Context, cfg Config) (*Synthesizer, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("synth: Model must not be nil")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = DefaultRetryInitial
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(cfg.Model)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("synth: failed to compile generation chain: %w", err)
	}
	return &Synthesizer{runnable: runnable, cfg: cfg}, nil
}

// Answer generates an answer to question from hits, which must be in rank
// order. A deadline reached while generating is reported as
// apperr.KindDownstreamTimeout; every other failure, including an empty
// completion, as apperr.KindGeneration.
func (s *Synthesizer) Answer(ctx context.Context, question string, hits []corpus.Hit) (string, error) {
	contexts := make([]string, 0, len(hits))
	for _, h := range hits {
		contexts = append(contexts, h.Text)
	}
	msgs := s.messages(question, contexts)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var out *schema.Message
	attempt := 0
	op := func() error {
		attempt++
		msg, err := s.runnable.Invoke(ctx, msgs)
		if err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return backoff.Permanent(err)
			}
			s.cfg.Log.Warn("synth: generation failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("model", s.cfg.ModelName),
				slog.Any("error", err),
			)
			return err
		}
		out = msg
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInitial
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.New(apperr.KindDownstreamTimeout, "synth.generate", err)
		}
		return "", apperr.Wrap(apperr.KindGeneration, "synth.generate", err)
	}

	answer := ""
	if out != nil {
		answer = strings.TrimSpace(out.Content)
	}
	if answer == "" {
		return "", apperr.New(apperr.KindGeneration, "synth.generate", ErrEmptyCompletion)
	}
	return answer, nil
}

// messages builds the system and user messages, dropping contexts that do
// not fit the token budget.
func (s *Synthesizer) messages(question string, contexts []string) []*schema.Message {
	fixed := BuildMessages(question, nil)
	kept, truncated := budget.FitContexts(fixed, contexts, s.cfg.MaxContextTokens)
	if truncated {
		s.cfg.Log.Warn("budget: contexts truncated to fit context window",
			slog.Int("retrieved", len(contexts)),
			slog.Int("kept", len(kept)),
			slog.Int("max_tokens", s.cfg.MaxContextTokens),
		)
	}
	return BuildMessages(question, kept)
}

// BuildMessages returns the system prompt and the user message
// "Question: {q}\n\nContext:\n{ctx1}\n\n{ctx2}...".
func BuildMessages(question string, contexts []string) []*schema.Message {
	user := "Question: " + question + "\n\nContext:\n" + strings.Join(contexts, "\n\n")
	return []*schema.Message{
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(user),
	}
}
