// Package rag holds the search side of tdsta: the Qdrant collection the
// indexer writes to, the lexical vectorizer that stands in for keyword search,
// and the retriever that turns a question into ranked hits.
// Callers depend on the interfaces here, never on Qdrant directly.
package rag

import (
	"context"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the write side of the search collection.
type Index interface {
	// Recreate drops the collection if it exists and creates it empty with
	// its schema. A missing collection is not an error.
	Recreate(ctx context.Context) error
	// Insert writes one document. Inserting the same ID again overwrites it.
	Insert(ctx context.Context, doc corpus.IndexedDocument) error
	// Count returns the exact number of documents in the collection.
	Count(ctx context.Context) (uint64, error)
}

// Searcher is the read side of the search collection. Returned hits are in
// engine rank order and may still be malformed; the Retriever validates them.
type Searcher interface {
	// SearchLexical ranks documents by keyword relevance to text.
	SearchLexical(ctx context.Context, text string, topK int) ([]corpus.Hit, error)
	// SearchHybrid fuses keyword and vector relevance.
	SearchHybrid(ctx context.Context, text string, vector []float32, topK int) ([]corpus.Hit, error)
}

// Retriever is the high-level interface used by the query service.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns up to topK hits for question, best first. Zero hits is
	// a valid result.
	Retrieve(ctx context.Context, question string, topK int) ([]corpus.Hit, error)
}
