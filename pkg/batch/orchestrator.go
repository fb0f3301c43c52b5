// Package batch drives the scoring pipeline over a set of posts: gate
// first, then taxonomy match and subscores under bounded concurrency, with
// partial-failure tolerance and a hard stop when the embedding collaborator
// is systemically down.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/siftlabs/sift/pkg/embed"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

// SkipReason explains why a post produced no score.
type SkipReason string

const (
	SkipLanguage             SkipReason = "language"
	SkipBlacklistKeyword     SkipReason = "blacklist_keyword"
	SkipBlacklistHandle      SkipReason = "blacklist_handle"
	SkipEmbeddingUnavailable SkipReason = "embedding_unavailable"
)

// SkippedPost records a post that was gated out or could not be scored.
// Gate rejections are expected outcomes, not errors; the reason keeps the
// two distinguishable for downstream accounting.
type SkippedPost struct {
	PostID string     `json:"post_id"`
	Reason SkipReason `json:"reason"`
}

// Report is the complete accounting of one batch run: every input post
// appears exactly once, either in Results or in Skips. Output order is not
// input order.
type Report struct {
	RunID   string         `json:"run_id"`
	Results []score.Result `json:"results"`
	Skips   []SkippedPost  `json:"skips"`
}

// AbortError signals a batch abandoned because embedding failures crossed
// the failure budget. No partial result set accompanies it.
type AbortError struct {
	RunID    string
	Failures int
	Budget   int
	Err      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("batch %s aborted: %d distinct embedding failures exceed budget %d: %v",
		e.RunID, e.Failures, e.Budget, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Options configure an Orchestrator.
type Options struct {
	Gate          post.GateRules
	Matcher       *taxonomy.Matcher
	Weights       score.Weights
	Thresholds    score.Thresholds
	Velocity      score.VelocityParams
	Mapping       score.SimilarityMapping
	Whitelist     []string
	Concurrency   int
	RatePerSecond float64 // embedding-bound work; 0 = unlimited
	FailureBudget int     // distinct failed posts tolerated before abort
	Logger        zerolog.Logger
	Now           func() time.Time
}

// Orchestrator scores batches of posts. Stateless across runs apart from
// the embedding cache living inside the matcher.
type Orchestrator struct {
	opts    Options
	limiter *rate.Limiter
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Concurrency)
	}
	return &Orchestrator{opts: opts, limiter: limiter}
}

// ScoreBatch runs the pipeline over posts. Gate rejections and isolated
// embedding failures become Skips and never abort the run; once distinct
// failed posts exceed the failure budget the whole batch aborts with
// *AbortError. Cancelling ctx stops new embedding work while letting
// in-flight posts finish.
func (o *Orchestrator) ScoreBatch(ctx context.Context, posts []post.Post) (*Report, error) {
	runID := uuid.NewString()
	log := o.opts.Logger.With().Str("run_id", runID).Logger()
	now := o.opts.Now()

	report := &Report{RunID: runID}

	// Gate everything up front. Pure CPU work, and a rejected post must
	// never cost an embedding call.
	var survivors []post.Post
	for _, p := range posts {
		decision := post.Gate(p, o.opts.Gate)
		if decision.Passed {
			survivors = append(survivors, p)
			continue
		}
		report.Skips = append(report.Skips, SkippedPost{
			PostID: p.ID,
			Reason: SkipReason(decision.Reason),
		})
		log.Debug().Str("post_id", p.ID).Str("reason", string(decision.Reason)).Msg("gated out")
	}

	var (
		mu       sync.Mutex
		failures atomic.Int64
		lastErr  error
	)
	budgetExceeded := errors.New("embedding failure budget exceeded")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for _, p := range survivors {
		p := p
		g.Go(func() error {
			// Cooperative cancellation: no new embedding calls once the
			// context is done; whatever is in flight completes on its own.
			if err := gctx.Err(); err != nil {
				return err
			}
			if o.limiter != nil {
				if err := o.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			result, err := o.scoreOne(gctx, p, now)
			if err != nil {
				var unavailable *embed.UnavailableError
				if !errors.As(err, &unavailable) {
					// Dimension mismatches and other contract violations
					// are not per-post noise; fail the batch.
					return fmt.Errorf("score post %s: %w", p.ID, err)
				}

				mu.Lock()
				lastErr = err
				mu.Unlock()
				n := failures.Add(1)
				log.Warn().Str("post_id", p.ID).Err(err).Int64("failures", n).Msg("embedding unavailable, skipping post")
				if n > int64(o.opts.FailureBudget) {
					return budgetExceeded
				}

				mu.Lock()
				report.Skips = append(report.Skips, SkippedPost{PostID: p.ID, Reason: SkipEmbeddingUnavailable})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Results = append(report.Results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, budgetExceeded) {
			return nil, &AbortError{
				RunID:    runID,
				Failures: int(failures.Load()),
				Budget:   o.opts.FailureBudget,
				Err:      lastErr,
			}
		}
		return nil, err
	}

	log.Info().
		Int("scored", len(report.Results)).
		Int("skipped", len(report.Skips)).
		Int("input", len(posts)).
		Msg("batch complete")
	return report, nil
}

func (o *Orchestrator) scoreOne(ctx context.Context, p post.Post, now time.Time) (score.Result, error) {
	match, err := o.opts.Matcher.Match(ctx, p)
	if err != nil {
		return score.Result{}, err
	}

	ss := score.Subscores{
		Velocity:      score.Velocity(p, now, o.opts.Velocity),
		Relevance:     score.Relevance(match.Similarity, o.opts.Mapping),
		Openness:      score.Openness(p),
		AuthorQuality: score.AuthorQuality(p, o.opts.Whitelist),
	}

	total, label := score.Classify(ss, o.opts.Weights, o.opts.Thresholds)

	return score.Result{
		PostID:              p.ID,
		Subscores:           ss.Clamped(),
		BestTopicID:         match.TopicID,
		BestTopicSimilarity: match.Similarity,
		TotalScore:          total,
		Label:               label,
		Rationale:           score.Rationale(ss, match.TopicID),
		ScoredAt:            now,
	}, nil
}
