package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/siftlabs/sift/pkg/batch"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
)

// ResultListOpts controls result listing.
type ResultListOpts struct {
	RunID    string
	Label    score.Label
	MinScore float64
	Limit    int
}

// Store is the persistence interface: candidate posts, cached embedding
// vectors, and per-run scoring outcomes.
type Store interface {
	UpsertPosts(ctx context.Context, posts []post.Post) error
	ListPosts(ctx context.Context, since time.Time, limit int) ([]post.Post, error)

	GetVector(ctx context.Context, key string) ([]float64, bool, error)
	PutVector(ctx context.Context, key string, vec []float64) error
	CountVectors(ctx context.Context) (int, error)

	SaveReport(ctx context.Context, report *batch.Report) error
	ListResults(ctx context.Context, opts ResultListOpts) ([]score.Result, error)
	ListSkips(ctx context.Context, runID string) ([]batch.SkippedPost, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPosts(ctx context.Context, posts []post.Post) error {
	for i := range posts {
		p := posts[i]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO posts (id, text, author_handle, author_followers, likes, replies, reposts, views, language, posted_at, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				likes = excluded.likes,
				replies = excluded.replies,
				reposts = excluded.reposts,
				views = excluded.views,
				collected_at = excluded.collected_at
		`, p.ID, p.Text, p.AuthorHandle, p.AuthorFollowers, p.Likes, p.Replies,
			p.Reposts, p.Views, p.Language, p.PostedAt, p.CollectedAt)
		if err != nil {
			return fmt.Errorf("upsert post %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, since time.Time, limit int) ([]post.Post, error) {
	if limit <= 0 {
		limit = 1000
	}
	var posts []post.Post
	err := s.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE collected_at >= ?
		ORDER BY posted_at DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) GetVector(ctx context.Context, key string) ([]float64, bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT vector FROM embeddings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get vector %s: %w", key, err)
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("decode vector %s: %w", key, err)
	}
	return vec, true, nil
}

func (s *SQLiteStore) PutVector(ctx context.Context, key string, vec []float64) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector %s: %w", key, err)
	}

	// Last writer wins; keys are content-addressed so any writer stores
	// the same vector anyway.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (key, dim, vector, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			dim = excluded.dim,
			vector = excluded.vector,
			created_at = excluded.created_at
	`, key, len(vec), string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put vector %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) CountVectors(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM embeddings`); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report *batch.Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range report.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, post_id, velocity, relevance, openness, author_quality,
				best_topic_id, best_topic_similarity, total_score, label, rationale, scored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, r.PostID, r.Subscores.Velocity, r.Subscores.Relevance,
			r.Subscores.Openness, r.Subscores.AuthorQuality, r.BestTopicID,
			r.BestTopicSimilarity, r.TotalScore, string(r.Label), r.Rationale, r.ScoredAt)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", r.PostID, err)
		}
	}

	now := time.Now().UTC()
	for _, sk := range report.Skips {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO skips (run_id, post_id, reason, skipped_at)
			VALUES (?, ?, ?, ?)
		`, report.RunID, sk.PostID, string(sk.Reason), now)
		if err != nil {
			return fmt.Errorf("insert skip %s: %w", sk.PostID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.RunID, err)
	}
	return nil
}

type resultRow struct {
	RunID               string    `db:"run_id"`
	PostID              string    `db:"post_id"`
	Velocity            float64   `db:"velocity"`
	Relevance           float64   `db:"relevance"`
	Openness            float64   `db:"openness"`
	AuthorQuality       float64   `db:"author_quality"`
	BestTopicID         string    `db:"best_topic_id"`
	BestTopicSimilarity float64   `db:"best_topic_similarity"`
	TotalScore          float64   `db:"total_score"`
	Label               string    `db:"label"`
	Rationale           string    `db:"rationale"`
	ScoredAt            time.Time `db:"scored_at"`
	ID                  int64     `db:"id"`
}

func (s *SQLiteStore) ListResults(ctx context.Context, opts ResultListOpts) ([]score.Result, error) {
	query := `SELECT * FROM results WHERE total_score >= ?`
	args := []any{opts.MinScore}

	if opts.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, opts.RunID)
	}
	if opts.Label != "" {
		query += ` AND label = ?`
		args = append(args, string(opts.Label))
	}
	query += ` ORDER BY total_score DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	results := make([]score.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, score.Result{
			PostID: r.PostID,
			Subscores: score.Subscores{
				Velocity:      r.Velocity,
				Relevance:     r.Relevance,
				Openness:      r.Openness,
				AuthorQuality: r.AuthorQuality,
			},
			BestTopicID:         r.BestTopicID,
			BestTopicSimilarity: r.BestTopicSimilarity,
			TotalScore:          r.TotalScore,
			Label:               score.Label(r.Label),
			Rationale:           r.Rationale,
			ScoredAt:            r.ScoredAt,
		})
	}
	return results, nil
}

func (s *SQLiteStore) ListSkips(ctx context.Context, runID string) ([]batch.SkippedPost, error) {
	type skipRow struct {
		ID        int64     `db:"id"`
		RunID     string    `db:"run_id"`
		PostID    string    `db:"post_id"`
		Reason    string    `db:"reason"`
		SkippedAt time.Time `db:"skipped_at"`
	}

	var rows []skipRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM skips WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list skips: %w", err)
	}

	skips := make([]batch.SkippedPost, 0, len(rows))
	for _, r := range rows {
		skips = append(skips, batch.SkippedPost{PostID: r.PostID, Reason: batch.SkipReason(r.Reason)})
	}
	return skips, nil
}
