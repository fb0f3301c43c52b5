package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/scheduler"
	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/pkg/alert"
	"github.com/siftlabs/sift/pkg/batch"
	"github.com/siftlabs/sift/pkg/embed"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/server"
	"github.com/siftlabs/sift/pkg/source"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Log.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func buildCache(cfg *config.Config, db store.Store) (*embed.Cache, error) {
	client := embed.NewClient(embed.ClientOptions{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})
	return embed.NewCache(client, db, cfg.Embedding.CacheSize)
}

func buildOrchestrator(cfg *config.Config, cache *embed.Cache, log zerolog.Logger) *batch.Orchestrator {
	project := cfg.Project
	return batch.New(batch.Options{
		Gate: post.GateRules{
			AllowedLanguage:   project.AllowedLanguage,
			BlacklistKeywords: project.BlacklistKeywords,
			BlacklistHandles:  project.BlacklistHandles,
			WhitelistHandles:  project.WhitelistHandles,
		},
		Matcher:    taxonomy.NewMatcher(project.Topics, cache),
		Weights:    project.Weights,
		Thresholds: project.Thresholds,
		Velocity: score.VelocityParams{
			ReferenceRate: project.VelocityReference,
		},
		Mapping:       score.LinearMapping(project.RelevanceFloor, project.RelevanceTarget),
		Whitelist:     project.WhitelistHandles,
		Concurrency:   cfg.Batch.Concurrency,
		RatePerSecond: cfg.Batch.RatePerSecond,
		FailureBudget: cfg.Batch.FailureBudget,
		Logger:        log,
	})
}

func buildSources(cfg *config.Config) []source.Source {
	var sources []source.Source
	for _, f := range cfg.Sources.Feeds {
		lang := f.Language
		if lang == "" {
			lang = cfg.Project.AllowedLanguage
		}
		sources = append(sources, source.NewFeed(f.Name, f.URL, lang))
	}
	if cfg.Sources.JSONL.Path != "" {
		sources = append(sources, source.NewJSONL(cfg.Sources.JSONL.Path))
	}
	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runScore(input string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	if input == "" {
		input = cfg.Sources.JSONL.Path
	}
	if input == "" {
		return fmt.Errorf("no input: pass --input or set sources.jsonl.path")
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	cache, err := buildCache(cfg, db)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	orchestrator := buildOrchestrator(cfg, cache, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	posts, err := source.NewJSONL(input).Collect(ctx)
	if err != nil {
		return fmt.Errorf("read posts: %w", err)
	}

	report, err := orchestrator.ScoreBatch(ctx, posts)
	if err != nil {
		return err
	}
	if err := db.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POST\tLABEL\tSCORE\tTOPIC\tRATIONALE")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\n",
			r.PostID, r.Label, r.TotalScore, r.BestTopicID, r.Rationale)
	}
	for _, s := range report.Skips {
		fmt.Fprintf(w, "%s\tskipped\t-\t-\t%s\n", s.PostID, s.Reason)
	}
	return w.Flush()
}

func runResults(label string, minScore float64, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	results, err := db.ListResults(context.Background(), store.ResultListOpts{
		Label:    score.Label(label),
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POST\tLABEL\tSCORE\tTOPIC\tSIM\tSCORED AT")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%.2f\t%s\n",
			r.PostID, r.Label, r.TotalScore, r.BestTopicID,
			r.BestTopicSimilarity, r.ScoredAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTopics() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	cached, err := db.CountVectors(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tEXEMPLARS\tHASH\tCACHED")
	for _, t := range cfg.Project.Topics {
		_, ok, err := db.GetVector(ctx, t.CacheKey())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%v\n", t.ID, t.Label, len(t.Exemplars), t.ContentHash(), ok)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d vectors cached in total\n", cached)
	return nil
}

func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("config ok: project %q, %d topics, weights sum %.6f\n",
		cfg.Project.Name, len(cfg.Project.Topics), cfg.Project.Weights.Sum())
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	cache, err := buildCache(cfg, db)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	orchestrator := buildOrchestrator(cfg, cache, log)

	return server.New(db, orchestrator, cfg.Project.Topics, port, log).ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	cache, err := buildCache(cfg, db)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	orchestrator := buildOrchestrator(cfg, cache, log)

	sched := scheduler.New(
		db,
		buildSources(cfg),
		orchestrator,
		buildAlertManager(cfg),
		cfg.Project.Name,
		cfg.Schedule.ParseInterval(),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, orchestrator, cfg.Project.Topics, port, log)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
	}()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Run(ctx)
	}()

	return awaitShutdown(ctx, log, srvErr, schedErr)
}

// awaitShutdown blocks until the server fails or the daemon is signalled.
// On shutdown the scheduler is drained first so an in-flight tick finishes
// persisting its report before the process exits.
func awaitShutdown(ctx context.Context, log zerolog.Logger, srvErr, schedErr <-chan error) error {
	select {
	case err := <-srvErr:
		return err
	case err := <-schedErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := <-schedErr; !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
