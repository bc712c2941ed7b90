package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrap_MapsDeadlineToTimeout(t *testing.T) {
	t.Parallel()

	err := Wrap(KindRetrieval, "rag.retrieve", fmt.Errorf("query: %w", context.DeadlineExceeded))
	if got := KindOf(err); got != KindDownstreamTimeout {
		t.Errorf("KindOf: got %q, want %q", got, KindDownstreamTimeout)
	}
}

func TestWrap_KeepsKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Wrap(KindRetrieval, "rag.retrieve", cause)
	if !Is(err, KindRetrieval) {
		t.Errorf("expected retrieval kind, got %q", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to remain in chain")
	}
	if Wrap(KindRetrieval, "op", nil) != nil {
		t.Error("Wrap(nil) must return nil")
	}
}

func TestWrap_DoesNotReclassifyTimeout(t *testing.T) {
	t.Parallel()

	inner := New(KindDownstreamTimeout, "synth.generate", context.DeadlineExceeded)
	err := Wrap(KindGeneration, "qa.ask", inner)
	if got := KindOf(err); got != KindDownstreamTimeout {
		t.Errorf("got %q, want %q", got, KindDownstreamTimeout)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"empty question", fmt.Errorf("qa: %w", ErrEmptyQuestion), KindBadRequest},
		{"wrapped kind", fmt.Errorf("outer: %w", New(KindGeneration, "synth", errors.New("401"))), KindGeneration},
		{"bare deadline", context.DeadlineExceeded, KindDownstreamTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublic_NeverLeaksCause(t *testing.T) {
	t.Parallel()

	secret := "Traceback (most recent call last): sk-live-123"
	err := New(KindGeneration, "synth.generate", errors.New(secret))
	msg := Public(err)
	if strings.Contains(msg, "sk-live") || strings.Contains(msg, "Traceback") {
		t.Errorf("public message leaked cause: %q", msg)
	}
	if PublicKind(err) != "generation" {
		t.Errorf("PublicKind: got %q", PublicKind(err))
	}
	if PublicKind(errors.New("x")) != "internal" {
		t.Errorf("unclassified errors must be reported as internal")
	}
}
