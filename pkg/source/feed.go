package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/siftlabs/sift/pkg/post"
)

// Feed collects posts from an RSS/Atom feed, e.g. a Nitter search feed for
// brand mentions. Feeds carry no engagement counts, so those stay zero and
// velocity leans on recency alone.
type Feed struct {
	client   *http.Client
	parser   *gofeed.Parser
	name     string
	url      string
	language string
}

// NewFeed creates a feed source. language is stamped on every post since
// feeds rarely declare one per item.
func NewFeed(name, url, language string) *Feed {
	return &Feed{
		client:   &http.Client{Timeout: 30 * time.Second},
		parser:   gofeed.NewParser(),
		name:     name,
		url:      url,
		language: language,
	}
}

func (f *Feed) Name() string { return "feed:" + f.name }

func (f *Feed) Collect(ctx context.Context) ([]post.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", f.name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.name, err)
	}

	now := time.Now().UTC()
	posts := make([]post.Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		text := strings.TrimSpace(item.Title)
		if text == "" {
			text = strings.TrimSpace(item.Description)
		}
		if text == "" {
			continue
		}

		postedAt := now
		if item.PublishedParsed != nil {
			postedAt = item.PublishedParsed.UTC()
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		posts = append(posts, post.Post{
			ID:              f.itemID(item),
			Text:            text,
			AuthorHandle:    author,
			AuthorFollowers: post.FollowersUnknown,
			Language:        f.language,
			PostedAt:        postedAt,
			CollectedAt:     now,
		})
	}
	return posts, nil
}

// itemID derives a stable post id from the feed item so repeat collections
// upsert instead of duplicating.
func (f *Feed) itemID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title
	}
	sum := sha256.Sum256([]byte(key))
	return f.name + ":" + hex.EncodeToString(sum[:8])
}
