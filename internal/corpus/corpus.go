// Package corpus defines the typed records that flow through the corpus
// pipeline (documents, chunks, embedded chunks) and the query path (hits,
// links, answers), plus the JSON artifact files written between pipeline
// stages.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DiscourseSource is the fixed source tag carried by every forum chunk.
const DiscourseSource = "discourse"

// ErrNonNumericChunkID is returned by [ChunkID.Int] when the identifier cannot
// be coerced to an int32.
var ErrNonNumericChunkID = errors.New("chunk_id is not numeric")

// Document is a source text unit: one course page or one forum post.
type Document struct {
	// Source is the file name of a course page, or "discourse".
	Source string
	// Text is the raw document text.
	Text string
	// Metadata is carried for forum posts only.
	Metadata map[string]any
}

// Post is one forum post as exported by the scraper.
type Post struct {
	Content          string `json:"content"`
	TopicID          int64  `json:"topic_id"`
	PostID           int64  `json:"post_id"`
	Author           string `json:"author"`
	CreatedAt        string `json:"created_at"`
	ReplyCount       int    `json:"reply_count"`
	LikeCount        int    `json:"like_count"`
	URL              string `json:"url"`
	IsAcceptedAnswer bool   `json:"is_accepted_answer"`
	TopicTitle       string `json:"topic_title"`
}

// Metadata returns the post attributes copied onto every chunk of the post.
func (p Post) Metadata() map[string]any {
	return map[string]any{
		"author":             p.Author,
		"created_at":         p.CreatedAt,
		"reply_count":        p.ReplyCount,
		"like_count":         p.LikeCount,
		"url":                p.URL,
		"is_accepted_answer": p.IsAcceptedAnswer,
		"topic_title":        p.TopicTitle,
	}
}

// ChunkID identifies a chunk within its document. Course chunks use a plain
// integer sequence; forum chunks use "<post_id>_<ordinal>".
//
// It marshals as a JSON number when it holds a plain integer and as a string
// otherwise, and accepts either form when unmarshalling.
type ChunkID string

// IntChunkID returns the ChunkID for sequence index i.
func IntChunkID(i int) ChunkID { return ChunkID(strconv.Itoa(i)) }

// CompositeChunkID returns the ChunkID "<postID>_<ordinal>".
func CompositeChunkID(postID int64, ordinal int) ChunkID {
	return ChunkID(fmt.Sprintf("%d_%d", postID, ordinal))
}

// String returns the raw identifier.
func (c ChunkID) String() string { return string(c) }

// Int coerces the identifier to int32. Plain integers map to themselves; a
// composite "<post>_<ordinal>" maps to its ordinal. Anything else returns
// ErrNonNumericChunkID.
func (c ChunkID) Int() (int32, error) {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return 0, fmt.Errorf("corpus: empty chunk_id: %w", ErrNonNumericChunkID)
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(n), nil
	}
	if i := strings.LastIndexByte(s, '_'); i > 0 && i < len(s)-1 {
		if _, err := strconv.ParseInt(s[:i], 10, 64); err == nil {
			if n, err := strconv.ParseInt(s[i+1:], 10, 32); err == nil {
				return int32(n), nil
			}
		}
	}
	return 0, fmt.Errorf("corpus: chunk_id %q: %w", s, ErrNonNumericChunkID)
}

// MarshalJSON implements json.Marshaler.
func (c ChunkID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ChunkID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("corpus: chunk_id: %w", err)
		}
		*c = ChunkID(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("corpus: chunk_id %s: %w", data, err)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("corpus: chunk_id %s is not an integer: %w", data, ErrNonNumericChunkID)
	}
	*c = ChunkID(strconv.FormatInt(int64(f), 10))
	return nil
}

// Chunk is a bounded slice of a Document's text.
type Chunk struct {
	Source   string         `json:"source"`
	TopicID  int64          `json:"topic_id,omitempty"`
	PostID   int64          `json:"post_id,omitempty"`
	ChunkID  ChunkID        `json:"chunk_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Key is the identity "{source}_{chunk_id}" used as the indexed document id.
func (c Chunk) Key() string {
	return c.Source + "_" + c.ChunkID.String()
}

// EmbeddedChunk is a Chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}

// IndexedDocument is the record persisted in the search collection.
type IndexedDocument struct {
	// ID is "{source}_{chunk_id}", stable across reindex runs.
	ID        string
	Source    string
	ChunkID   int32
	Text      string
	Embedding []float32
	// TopicID and PostID are zero for course chunks.
	TopicID int64
	PostID  int64
	// URL is the canonical forum URL, empty for course chunks.
	URL string
}

// Query is a user question plus an optional opaque image reference.
type Query struct {
	Question string  `json:"question"`
	Image    *string `json:"image"`
}

// Hit is a retrieved document with its engine-assigned rank (0 = best).
type Hit struct {
	ID      string
	Source  string
	ChunkID int32
	Text    string
	URL     string
	Score   float32
	Rank    int
}

// Link is a citation attached to an Answer.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Answer is the generated text plus one citation per hit, in rank order.
type Answer struct {
	Answer string `json:"answer"`
	Links  []Link `json:"links"`
}
