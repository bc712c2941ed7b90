package ingestion

import (
	"net/url"
	"strconv"
	"strings"
)

// PostRef is what a forum post URL says about the post it points at.
type PostRef struct {
	// Slug is the topic slug, empty for "/t/{id}" URLs.
	Slug string
	// TopicID is the numeric topic id, zero if the URL has none.
	TopicID int64
	// PostNumber is the 1-based position of the post in its topic, zero when
	// the URL points at the topic itself.
	PostNumber int
}

// InferPostRef inspects a Discourse URL and returns best-effort topic and
// post identifiers. Any URL that does not match a known pattern returns the
// zero PostRef.
//
// Supported URL patterns:
//
//	{host}/t/{slug}/{topic_id}
//	{host}/t/{slug}/{topic_id}/{post_number}
//	{host}/t/{topic_id}
//	{host}/t/{topic_id}/{post_number}
func InferPostRef(rawURL string) PostRef {
	var ref PostRef

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ref
	}

	segments := trimSegments(parsed.Path)
	if len(segments) < 2 || segments[0] != "t" {
		return ref
	}
	rest := segments[1:]

	// A non-numeric first segment is the slug.
	if _, err := strconv.ParseInt(rest[0], 10, 64); err != nil {
		ref.Slug = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return PostRef{}
	}

	topicID, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || topicID <= 0 {
		return PostRef{}
	}
	ref.TopicID = topicID

	if len(rest) > 1 {
		if n, err := strconv.Atoi(rest[1]); err == nil && n > 0 {
			ref.PostNumber = n
		}
	}
	return ref
}

// trimSegments splits a URL path into non-empty lowercase segments.
func trimSegments(path string) []string {
	parts := strings.Split(strings.ToLower(path), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
