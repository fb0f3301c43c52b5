package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/pkg/post"
)

func TestJSONLCollect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posts.jsonl")
	body := `{"id":"p1","text":"which grinder should I get?","author_handle":"@coffeenerd","likes":12,"language":"en","posted_at":"2026-03-10T09:00:00Z"}
{"id":"p2","text":"no counts on this one","author_handle":"@quiet","language":"en","posted_at":"2026-03-10T10:00:00Z"}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	posts, err := NewJSONL(path).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, 12, posts[0].Likes)

	// Missing engagement counts default to zero, follower count to unknown.
	assert.Equal(t, 0, posts[1].Likes)
	assert.Equal(t, int64(post.FollowersUnknown), posts[1].AuthorFollowers)
	assert.False(t, posts[1].CollectedAt.IsZero())
}

func TestJSONLRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"text":"no id"}`), 0o644))

	_, err := NewJSONL(path).Collect(context.Background())
	assert.Error(t, err)
}

func TestJSONLMissingFile(t *testing.T) {
	_, err := NewJSONL("/nonexistent/posts.jsonl").Collect(context.Background())
	assert.Error(t, err)
}

func TestFeedItemIDStable(t *testing.T) {
	f := NewFeed("mentions", "https://example.com/feed", "en")
	a := f.itemID(&gofeed.Item{GUID: "guid-1"})
	b := f.itemID(&gofeed.Item{GUID: "guid-1"})
	c := f.itemID(&gofeed.Item{GUID: "guid-2"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
