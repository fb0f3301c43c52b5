// Package source holds thin ingestion adapters that turn external inputs
// into candidate posts. Real ingestion is an upstream collaborator; these
// adapters exist for local runs and daemon mode.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/siftlabs/sift/pkg/post"
)

// Source is the interface every post collector must implement.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]post.Post, error)
}

// JSONL reads candidate posts from a line-delimited JSON file, one post per
// line. Missing engagement counts default to zero and a missing follower
// count to unknown, matching the ingestion contract.
type JSONL struct {
	path string
}

// NewJSONL creates a JSONL file source.
func NewJSONL(path string) *JSONL {
	return &JSONL{path: path}
}

func (j *JSONL) Name() string { return "jsonl" }

func (j *JSONL) Collect(ctx context.Context) ([]post.Post, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", j.path, err)
	}
	defer f.Close()

	now := time.Now().UTC()
	var posts []post.Post

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		// Followers default to unknown, not zero.
		p := post.Post{AuthorFollowers: post.FollowersUnknown}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", j.path, line, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%s line %d: post id is required", j.path, line)
		}
		if p.CollectedAt.IsZero() {
			p.CollectedAt = now
		}
		posts = append(posts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}
	return posts, nil
}
