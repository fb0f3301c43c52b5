package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/pkg/alert"
	"github.com/siftlabs/sift/pkg/batch"
	"github.com/siftlabs/sift/pkg/embed"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/source"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

type fakeStore struct {
	mu       sync.Mutex
	posts    []post.Post
	reports  []*batch.Report
	onReport func()
}

func (f *fakeStore) UpsertPosts(ctx context.Context, posts []post.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, posts...)
	return nil
}

func (f *fakeStore) ListPosts(ctx context.Context, since time.Time, limit int) ([]post.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]post.Post(nil), f.posts...), nil
}

func (f *fakeStore) GetVector(ctx context.Context, key string) ([]float64, bool, error) {
	return nil, false, nil
}

func (f *fakeStore) PutVector(ctx context.Context, key string, vec []float64) error { return nil }

func (f *fakeStore) CountVectors(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeStore) SaveReport(ctx context.Context, report *batch.Report) error {
	f.mu.Lock()
	f.reports = append(f.reports, report)
	cb := f.onReport
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *fakeStore) ListResults(ctx context.Context, opts store.ResultListOpts) ([]score.Result, error) {
	return nil, nil
}

func (f *fakeStore) ListSkips(ctx context.Context, runID string) ([]batch.SkippedPost, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

type stubSource struct {
	posts []post.Post
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Collect(ctx context.Context) ([]post.Post, error) {
	return s.posts, nil
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float64{1, 0}, nil
}

func newTestOrchestrator(t *testing.T, e embed.Embedder, budget int) *batch.Orchestrator {
	t.Helper()
	cache, err := embed.NewCache(e, nil, 32)
	require.NoError(t, err)

	return batch.New(batch.Options{
		Matcher:       taxonomy.NewMatcher([]taxonomy.Topic{{ID: "general", Label: "general"}}, cache),
		Weights:       score.Weights{Velocity: 0.25, Relevance: 0.25, Openness: 0.25, AuthorQuality: 0.25},
		Thresholds:    score.Thresholds{GreenMin: 0.6, YellowMin: 0.4},
		FailureBudget: budget,
		Logger:        zerolog.Nop(),
	})
}

func TestRunScoresCollectedPosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancelling from SaveReport stops the loop right after the first tick.
	fs := &fakeStore{onReport: cancel}
	src := &stubSource{posts: []post.Post{
		{ID: "p1", Text: "is this any good?", AuthorHandle: "@a", Language: "en", PostedAt: time.Now().Add(-time.Hour)},
		{ID: "p2", Text: "love it", AuthorHandle: "@b", Language: "en", PostedAt: time.Now().Add(-time.Hour)},
	}}

	sched := New(fs, []source.Source{src}, newTestOrchestrator(t, &stubEmbedder{}, 5),
		alert.NewManager(nil), "test", time.Hour, zerolog.Nop())

	err := sched.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.reports, 1)
	assert.Len(t, fs.reports[0].Results, 2)
	assert.Len(t, fs.posts, 2, "collected posts are persisted before scoring")
}

func TestRunStopsOnBatchAbort(t *testing.T) {
	fs := &fakeStore{}
	src := &stubSource{posts: []post.Post{
		{ID: "p1", Text: "anything", AuthorHandle: "@a", Language: "en", PostedAt: time.Now().Add(-time.Hour)},
		{ID: "p2", Text: "something", AuthorHandle: "@b", Language: "en", PostedAt: time.Now().Add(-time.Hour)},
	}}

	down := &stubEmbedder{err: &embed.UnavailableError{Key: "x", Err: errors.New("outage")}}
	sched := New(fs, []source.Source{src}, newTestOrchestrator(t, down, 0),
		alert.NewManager(nil), "test", time.Hour, zerolog.Nop())

	err := sched.Run(context.Background())
	require.Error(t, err)

	var abort *batch.AbortError
	assert.ErrorAs(t, err, &abort)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Empty(t, fs.reports, "no partial report is persisted on abort")
}
