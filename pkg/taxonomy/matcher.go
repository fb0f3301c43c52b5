package taxonomy

import (
	"context"
	"fmt"
	"math"

	"github.com/siftlabs/sift/pkg/embed"
	"github.com/siftlabs/sift/pkg/post"
)

// Match is the best-topic result for a post.
type Match struct {
	TopicID    string
	Similarity float64
}

// Matcher finds the closest topic for a post using cached embeddings.
type Matcher struct {
	topics []Topic
	cache  *embed.Cache
}

// NewMatcher creates a matcher over a fixed topic set. Topic order matters:
// it is the tie-break order for equal similarities.
func NewMatcher(topics []Topic, cache *embed.Cache) *Matcher {
	return &Matcher{topics: topics, cache: cache}
}

// Match embeds the post (via the cache) and returns the topic with the
// highest cosine similarity. Ties keep the earliest topic in configured
// order, so results are deterministic across runs.
func (m *Matcher) Match(ctx context.Context, p post.Post) (Match, error) {
	if len(m.topics) == 0 {
		return Match{}, fmt.Errorf("no topics configured")
	}

	postVec, err := m.cache.GetOrCompute(ctx, PostCacheKey(p.ID), p.Text)
	if err != nil {
		return Match{}, err
	}

	best := Match{Similarity: math.Inf(-1)}
	for _, topic := range m.topics {
		topicVec, err := m.cache.GetOrCompute(ctx, topic.CacheKey(), topic.EmbeddingText())
		if err != nil {
			return Match{}, err
		}
		sim := CosineSimilarity(postVec, topicVec)
		if sim > best.Similarity {
			best = Match{TopicID: topic.ID, Similarity: sim}
		}
	}
	return best, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Zero-norm or mismatched inputs yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
