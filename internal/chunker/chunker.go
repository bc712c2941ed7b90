// Package chunker splits course pages and forum posts into bounded text
// fragments tagged with their source identity. Course pages are cut into
// overlapping word windows; forum posts are wrapped into fragments bounded by
// a character count.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Tejaswini050302/TDS-Project-1/internal/apperr"
	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

const (
	// DefaultSize is the number of words per course chunk.
	DefaultSize = 500
	// DefaultOverlap is the number of words shared by consecutive course chunks.
	DefaultOverlap = 100
	// DefaultMaxChars is the upper bound on forum chunk length in characters.
	DefaultMaxChars = 1000
)

// ErrInvalidWindow is returned for a word window that cannot advance.
var ErrInvalidWindow = errors.New("chunker: overlap must be smaller than size")

// frontMatter matches a leading "---" ... "---" block.
var frontMatter = regexp.MustCompile(`(?s)\A\s*---.*?---`)

// Config holds the chunking parameters.
type Config struct {
	// Size is the window length in words. Defaults to DefaultSize if zero.
	Size int
	// Overlap is the number of words repeated between windows. Must be
	// smaller than Size.
	Overlap int
	// MaxChars bounds forum fragments. Defaults to DefaultMaxChars if zero.
	MaxChars int
}

// Chunker turns documents into chunks. It is stateless and safe for
// concurrent use.
type Chunker struct {
	cfg Config
}

// New validates cfg and returns a Chunker. A window whose overlap is not
// smaller than its size is rejected rather than clamped.
func New(cfg Config) (*Chunker, error) {
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if err := validateWindow(cfg.Size, cfg.Overlap); err != nil {
		return nil, apperr.New(apperr.KindChunking, "chunker.new", err)
	}
	if cfg.MaxChars < 0 {
		return nil, apperr.New(apperr.KindChunking, "chunker.new",
			fmt.Errorf("chunker: max chars must be positive, got %d", cfg.MaxChars))
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the resolved configuration.
func (c *Chunker) Config() Config { return c.cfg }

// Course strips the front matter from a course page and cuts it into word
// windows numbered from 0.
func (c *Chunker) Course(doc corpus.Document) ([]corpus.Chunk, error) {
	if !utf8.ValidString(doc.Text) {
		return nil, apperr.New(apperr.KindChunking, "chunker.course",
			fmt.Errorf("chunker: %s is not valid UTF-8", doc.Source))
	}

	windows, err := WordWindow(StripFrontMatter(doc.Text), c.cfg.Size, c.cfg.Overlap)
	if err != nil {
		return nil, apperr.New(apperr.KindChunking, "chunker.course", err)
	}

	chunks := make([]corpus.Chunk, 0, len(windows))
	for i, text := range windows {
		chunks = append(chunks, corpus.Chunk{
			Source:  doc.Source,
			ChunkID: corpus.IntChunkID(i),
			Text:    text,
		})
	}
	return chunks, nil
}

// Discourse wraps one forum post into fragments of at most MaxChars. Every
// fragment inherits the post metadata and gets the id "<post_id>_<ordinal>".
// A post whose content is blank yields no chunks.
func (c *Chunker) Discourse(post corpus.Post) ([]corpus.Chunk, error) {
	if !utf8.ValidString(post.Content) {
		return nil, apperr.New(apperr.KindChunking, "chunker.discourse",
			fmt.Errorf("chunker: post %d is not valid UTF-8", post.PostID))
	}

	content := strings.TrimSpace(post.Content)
	if content == "" {
		return nil, nil
	}

	parts := Wrap(content, c.cfg.MaxChars)
	chunks := make([]corpus.Chunk, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, corpus.Chunk{
			Source:   corpus.DiscourseSource,
			TopicID:  post.TopicID,
			PostID:   post.PostID,
			ChunkID:  corpus.CompositeChunkID(post.PostID, i),
			Text:     text,
			Metadata: post.Metadata(),
		})
	}
	return chunks, nil
}

// StripFrontMatter removes a leading "---" delimited block and surrounding
// whitespace.
func StripFrontMatter(text string) string {
	return strings.TrimSpace(frontMatter.ReplaceAllString(text, ""))
}

// WordWindow splits text on whitespace and returns windows of size words,
// each starting size-overlap words after the previous one. The last window
// ends at the last word; no window is emitted that is entirely covered by
// its predecessor. Empty text yields no windows.
func WordWindow(text string, size, overlap int) ([]string, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	var out []string
	for start := 0; ; start += step {
		end := min(start+size, len(words))
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out, nil
}

// Wrap greedily packs whitespace-separated words into lines of at most
// maxChars characters joined by single spaces. Words are never split, so
// hyphenated words stay whole and a word longer than maxChars becomes a line
// of its own.
func Wrap(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		out  []string
		line strings.Builder
		n    int
	)
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		switch {
		case n == 0:
			line.WriteString(w)
			n = wl
		case n+1+wl <= maxChars:
			line.WriteByte(' ')
			line.WriteString(w)
			n += 1 + wl
		default:
			out = append(out, line.String())
			line.Reset()
			line.WriteString(w)
			n = wl
		}
	}
	if n > 0 {
		out = append(out, line.String())
	}
	return out
}

// validateWindow rejects windows that would never advance.
func validateWindow(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w (size=%d)", ErrInvalidWindow, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidWindow, size, overlap)
	}
	return nil
}
