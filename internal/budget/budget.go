// Package budget provides token budget estimation and context fitting for the
// answer synthesizer. Because generation can run on several LLM backends with
// different tokenizers, this package uses a character-based heuristic:
// 1 token ≈ 4 characters (English prose and code).
package budget

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	DefaultMaxContextTokens = 6000

	// separatorTokens is charged for the blank line between two contexts.
	separatorTokens = 1
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// FitContexts selects the retrieved contexts that fit the budget. fixed holds
// the messages that are always sent (system prompt and the question);
// contexts are in rank order, best first.
//
// Contexts are kept in order while fixed + kept contexts fit maxTokens; the
// first context that does not fit ends the selection. The top context is
// always kept: if it alone overflows, it is cut at a word boundary to the
// remaining budget. truncated reports whether anything was dropped or cut.
func FitContexts(fixed []*schema.Message, contexts []string, maxTokens int) (kept []string, truncated bool) {
	if len(contexts) == 0 {
		return nil, false
	}

	remaining := maxTokens - EstimateMessages(fixed)

	first := contexts[0]
	if cost := Estimate(first); cost > remaining {
		return []string{CutWords(first, max(remaining, 1)*charsPerToken)}, true
	}
	kept = append(kept, first)
	remaining -= Estimate(first)

	for _, c := range contexts[1:] {
		cost := separatorTokens + Estimate(c)
		if cost > remaining {
			return kept, true
		}
		kept = append(kept, c)
		remaining -= cost
	}
	return kept, false
}

// CutWords shortens s to at most maxBytes bytes, ending at the last
// whitespace before the limit. A single word longer than the limit is cut at
// a rune boundary.
func CutWords(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	head := s[:cut]
	if i := strings.LastIndexFunc(head, unicode.IsSpace); i > 0 {
		head = head[:i]
	}
	return strings.TrimRightFunc(head, unicode.IsSpace)
}
