package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/pkg/batch"
	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

// Server provides the HTTP API for review tooling: browse results and
// skips, inspect the taxonomy, and score ad-hoc batches.
type Server struct {
	store        store.Store
	orchestrator *batch.Orchestrator
	topics       []taxonomy.Topic
	port         int
	log          zerolog.Logger
}

// New creates a new HTTP server.
func New(s store.Store, orchestrator *batch.Orchestrator, topics []taxonomy.Topic, port int, log zerolog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:        s,
		orchestrator: orchestrator,
		topics:       topics,
		port:         port,
		log:          log,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/results", s.handleResults)
	mux.HandleFunc("/api/v1/skips", s.handleSkips)
	mux.HandleFunc("/api/v1/topics", s.handleTopics)
	mux.HandleFunc("/api/v1/score", s.handleScore)

	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ResultListOpts{
		RunID: r.URL.Query().Get("run_id"),
		Label: score.Label(r.URL.Query().Get("label")),
		Limit: 100,
	}
	if v := r.URL.Query().Get("min_score"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_score"})
			return
		}
		opts.MinScore = min
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		opts.Limit = limit
	}

	results, err := s.store.ListResults(r.Context(), opts)
	if err != nil {
		s.log.Error().Err(err).Msg("list results")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list results failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleSkips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run_id is required"})
		return
	}

	skips, err := s.store.ListSkips(r.Context(), runID)
	if err != nil {
		s.log.Error().Err(err).Msg("list skips")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list skips failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skips": skips, "count": len(skips)})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type topicInfo struct {
		taxonomy.Topic
		ContentHash string `json:"content_hash"`
	}
	infos := make([]topicInfo, 0, len(s.topics))
	for _, t := range s.topics {
		infos = append(infos, topicInfo{Topic: t, ContentHash: t.ContentHash()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": infos})
}

// handleScore scores a posted batch synchronously and persists the report.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	posts, err := decodePosts(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid posts payload"})
		return
	}

	report, err := s.orchestrator.ScoreBatch(r.Context(), posts)
	if err != nil {
		var abort *batch.AbortError
		if errors.As(err, &abort) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": abort.Error()})
			return
		}
		s.log.Error().Err(err).Msg("score batch")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "scoring failed"})
		return
	}

	if err := s.store.SaveReport(r.Context(), report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.RunID).Msg("persist report")
	}
	writeJSON(w, http.StatusOK, report)
}

// decodePosts unmarshals a JSON array of posts with the same defaulting as
// the JSONL source: an omitted follower count means unknown, not zero.
func decodePosts(r io.Reader) ([]post.Post, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	posts := make([]post.Post, 0, len(raw))
	for _, m := range raw {
		p := post.Post{AuthorFollowers: post.FollowersUnknown}
		if err := json.Unmarshal(m, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
