// Package apperr defines the closed set of failure kinds used across the
// corpus pipeline and the question-answering path. Every external failure is
// mapped onto one of these kinds before it reaches a request boundary, so the
// HTTP layer can answer with a stable, user-safe payload.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed: callers switch on it.
type Kind string

const (
	// KindChunking is a malformed input document. Fatal for that document only.
	KindChunking Kind = "chunking"
	// KindEmbedding is a per-chunk embedding failure. The chunk is dropped.
	KindEmbedding Kind = "embedding"
	// KindIndexing is a per-record schema or type mismatch, or a failure to
	// recreate the collection.
	KindIndexing Kind = "indexing"
	// KindRetrieval is an unreachable search engine or a rejected query.
	KindRetrieval Kind = "retrieval"
	// KindGeneration is a failure of the chat-completion service.
	KindGeneration Kind = "generation"
	// KindDownstreamTimeout is a deadline exceeded on retrieval or generation.
	KindDownstreamTimeout Kind = "downstream_timeout"
	// KindBadRequest is invalid caller input at the request boundary.
	KindBadRequest Kind = "bad_request"
)

// ErrEmptyQuestion is returned when a query carries no question text.
var ErrEmptyQuestion = errors.New("question is required")

// Error carries a Kind, the operation that failed, and the underlying cause.
type Error struct {
	// Kind is the failure classification.
	Kind Kind
	// Op names the operation, e.g. "rag.retrieve".
	Op string
	// Err is the wrapped cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is like New but maps context deadline errors to KindDownstreamTimeout.
// It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindDownstreamTimeout {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindDownstreamTimeout, op, err)
	}
	return New(kind, op, err)
}

// KindOf returns the Kind of the first *Error in err's chain. Context deadline
// errors without a Kind report KindDownstreamTimeout; anything else that is
// unclassified reports the empty Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrEmptyQuestion) {
		return KindBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindDownstreamTimeout
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// publicMessages holds the fixed user-facing text for each kind. Raw error
// text never leaves the process.
var publicMessages = map[Kind]string{
	KindChunking:          "The document could not be processed.",
	KindEmbedding:         "The embedding service failed.",
	KindIndexing:          "The search index could not be updated.",
	KindRetrieval:         "The search service is unavailable. Please try again later.",
	KindGeneration:        "The answer service failed. Please try again later.",
	KindDownstreamTimeout: "The request timed out. Please try again.",
	KindBadRequest:        "The request was invalid. Send a JSON body with a non-empty \"question\".",
}

// Public returns the user-safe message for err. Unclassified errors get a
// generic message.
func Public(err error) string {
	if msg, ok := publicMessages[KindOf(err)]; ok {
		return msg
	}
	return "An internal error occurred."
}

// PublicKind returns the kind reported to clients; unclassified errors are
// reported as "internal".
func PublicKind(err error) string {
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "internal"
}
