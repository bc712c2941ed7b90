package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	t.Parallel()

	got := Terms("How do I submit GA-1? Use `uv run`, not pip!")
	assert.Equal(t, []string{"how", "do", "i", "submit", "ga", "1", "use", "uv", "run", "not", "pip"}, got)
}

func TestLexicon_WordsOnly(t *testing.T) {
	t.Parallel()

	v := NewLexicon(0).Vector("docker docker podman")
	require.Equal(t, 2, v.Len())

	var sum float32
	for _, x := range v.Values {
		sum += x
	}
	assert.Equal(t, float32(3), sum, "term frequencies")
}

func TestLexicon_IndicesSortedAndUnique(t *testing.T) {
	t.Parallel()

	v := NewLexicon(2).Vector("The quick brown fox jumps over the lazy dog, the end")
	require.Equal(t, len(v.Indices), len(v.Values))
	for i := 1; i < len(v.Indices); i++ {
		assert.Less(t, v.Indices[i-1], v.Indices[i])
	}
}

func TestLexicon_TrigramsToleranceTypos(t *testing.T) {
	t.Parallel()

	lex := NewLexicon(2)
	overlap := func(a, b SparseVector) int {
		set := make(map[uint32]bool, a.Len())
		for _, i := range a.Indices {
			set[i] = true
		}
		n := 0
		for _, i := range b.Indices {
			if set[i] {
				n++
			}
		}
		return n
	}

	// A transposition shares no word feature but several trigrams.
	assert.Positive(t, overlap(lex.Vector("pandas"), lex.Vector("pnadas")))
	assert.Zero(t, overlap(NewLexicon(0).Vector("pandas"), NewLexicon(0).Vector("pnadas")))
}

func TestLexicon_Empty(t *testing.T) {
	t.Parallel()

	assert.Zero(t, NewLexicon(2).Vector("  ...  ").Len())
}

func TestTrigrams(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"^ca", "cat", "at$"}, trigrams("cat"))
	assert.Nil(t, trigrams("ab"))
}
