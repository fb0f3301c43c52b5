// Package taxonomy holds the per-project topic set and matches posts against
// it by embedding similarity.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Topic is one entry in a project's taxonomy. Immutable for the duration of
// a run; the exemplars anchor what "on topic" means semantically.
type Topic struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Description string   `yaml:"description" json:"description"`
	Exemplars   []string `yaml:"exemplars" json:"exemplars"`
}

// ContentHash hashes the semantic content of the topic. Editing the label,
// description, or any exemplar yields a new hash, which yields a new cache
// key, which invalidates the old embedding without any explicit eviction.
func (t Topic) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(t.Label))
	h.Write([]byte{0})
	h.Write([]byte(t.Description))
	for _, ex := range t.Exemplars {
		h.Write([]byte{0})
		h.Write([]byte(ex))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CacheKey is the embedding-cache key for this topic.
func (t Topic) CacheKey() string {
	return "topic:" + t.ContentHash()
}

// EmbeddingText is the document embedded to represent the topic: label and
// description followed by the exemplar posts.
func (t Topic) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(t.Label)
	if t.Description != "" {
		b.WriteString(". ")
		b.WriteString(t.Description)
	}
	for _, ex := range t.Exemplars {
		b.WriteString("\n")
		b.WriteString(ex)
	}
	return b.String()
}

// PostCacheKey is the embedding-cache key for a post.
func PostCacheKey(postID string) string {
	return "post:" + postID
}
