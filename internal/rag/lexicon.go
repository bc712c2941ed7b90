package rag

import (
	"hash/fnv"
	"slices"
	"strings"
	"unicode"
)

// SparseVector is a term-frequency vector over hashed features.
// Indices are strictly increasing.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Len returns the number of non-zero features.
func (v SparseVector) Len() int { return len(v.Indices) }

// Lexicon turns text into sparse vectors for the collection's lexical
// channel. Each lowercase word contributes one feature; with typo tolerance
// on, the padded character trigrams of each word contribute too, so "pandas"
// still scores against "pnadas". The engine applies IDF on top.
type Lexicon struct {
	trigramWeight float32
}

// NewLexicon returns a Lexicon. typoTolerance 0 disables trigram features;
// 1 adds them at quarter weight and 2 or more at half weight.
func NewLexicon(typoTolerance int) *Lexicon {
	var w float32
	switch {
	case typoTolerance <= 0:
		w = 0
	case typoTolerance == 1:
		w = 0.25
	default:
		w = 0.5
	}
	return &Lexicon{trigramWeight: w}
}

// Terms splits text into lowercase words made of letters and digits.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Vector builds the sparse vector for text. Empty text yields an empty
// vector.
func (l *Lexicon) Vector(text string) SparseVector {
	weights := make(map[uint32]float32)
	for _, term := range Terms(text) {
		weights[feature("w:", term)]++
		if l.trigramWeight == 0 {
			continue
		}
		for _, tri := range trigrams(term) {
			weights[feature("t:", tri)] += l.trigramWeight
		}
	}

	v := SparseVector{
		Indices: make([]uint32, 0, len(weights)),
		Values:  make([]float32, 0, len(weights)),
	}
	for idx := range weights {
		v.Indices = append(v.Indices, idx)
	}
	slices.Sort(v.Indices)
	for _, idx := range v.Indices {
		v.Values = append(v.Values, weights[idx])
	}
	return v
}

// trigrams returns the character trigrams of "^term$". Terms shorter than
// three runes yield none.
func trigrams(term string) []string {
	r := []rune(term)
	if len(r) < 3 {
		return nil
	}
	padded := make([]rune, 0, len(r)+2)
	padded = append(padded, '^')
	padded = append(padded, r...)
	padded = append(padded, '$')

	out := make([]string, 0, len(padded)-2)
	for i := 0; i+3 <= len(padded); i++ {
		out = append(out, string(padded[i:i+3]))
	}
	return out
}

// feature hashes a prefixed token into the sparse index space.
func feature(prefix, token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prefix))
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
