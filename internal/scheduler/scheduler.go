package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/pkg/alert"
	"github.com/siftlabs/sift/pkg/batch"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/source"
)

// Scheduler runs the periodic collect-and-score loop: pull candidate posts
// from the sources, score the batch, persist the report, and notify for
// green posts. The engine itself stays batch-oriented; this is the only
// place that knows about wall-clock scheduling.
type Scheduler struct {
	store        store.Store
	sources      []source.Source
	orchestrator *batch.Orchestrator
	alertMgr     *alert.Manager
	project      string
	interval     time.Duration
	lookback     time.Duration
	log          zerolog.Logger
}

// New creates a scheduler.
func New(
	s store.Store,
	sources []source.Source,
	orchestrator *batch.Orchestrator,
	alertMgr *alert.Manager,
	project string,
	interval time.Duration,
	log zerolog.Logger,
) *Scheduler {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		store:        s,
		sources:      sources,
		orchestrator: orchestrator,
		alertMgr:     alertMgr,
		project:      project,
		interval:     interval,
		lookback:     24 * time.Hour,
		log:          log,
	}
}

// Run starts the loop. Blocks until ctx is cancelled. A batch abort stops
// the loop: if the embedding collaborator is systemically down, retrying
// every interval only burns budget.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	if err := s.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	posts := s.collect(ctx)
	if len(posts) == 0 {
		s.log.Debug().Msg("nothing to score")
		return nil
	}

	report, err := s.orchestrator.ScoreBatch(ctx, posts)
	if err != nil {
		var abort *batch.AbortError
		if errors.As(err, &abort) {
			s.log.Error().Err(err).Msg("batch aborted, stopping scheduler")
			return err
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.log.Error().Err(err).Msg("batch failed")
		return err
	}

	if err := s.store.SaveReport(ctx, report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.RunID).Msg("persist report failed")
		return nil
	}

	s.notifyGreens(ctx, posts, report)
	return nil
}

func (s *Scheduler) collect(ctx context.Context) []post.Post {
	for _, src := range s.sources {
		posts, err := src.Collect(ctx)
		if err != nil {
			s.log.Warn().Str("source", src.Name()).Err(err).Msg("collect failed")
			continue
		}
		if err := s.store.UpsertPosts(ctx, posts); err != nil {
			s.log.Warn().Str("source", src.Name()).Err(err).Msg("store posts failed")
			continue
		}
		s.log.Info().Str("source", src.Name()).Int("posts", len(posts)).Msg("collected")
	}

	posts, err := s.store.ListPosts(ctx, time.Now().Add(-s.lookback), 0)
	if err != nil {
		s.log.Error().Err(err).Msg("list posts failed")
		return nil
	}
	return posts
}

func (s *Scheduler) notifyGreens(ctx context.Context, posts []post.Post, report *batch.Report) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	byID := make(map[string]post.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	var greens []alert.Hit
	for _, r := range report.Results {
		if r.Label != score.LabelGreen {
			continue
		}
		greens = append(greens, alert.Hit{Post: byID[r.PostID], Result: r})
	}
	if len(greens) == 0 {
		return
	}

	n := &alert.Notification{Project: s.project, RunID: report.RunID, Greens: greens}
	if err := s.alertMgr.Broadcast(ctx, n); err != nil {
		s.log.Warn().Err(err).Msg("alert failed")
		return
	}
	s.log.Info().Int("greens", len(greens)).Str("run_id", report.RunID).Msg("alerted")
}
