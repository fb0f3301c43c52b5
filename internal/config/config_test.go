package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Project.Topics = []taxonomy.Topic{
		{ID: "espresso", Label: "home espresso"},
	}
	return cfg
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRequiresTopics(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "project.topics", verr.Field)
}

func TestValidateRejectsDuplicateTopicIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Project.Topics = append(cfg.Project.Topics, taxonomy.Topic{ID: "espresso", Label: "again"})
	assert.Error(t, cfg.Validate())
}

func TestValidateWeightSum(t *testing.T) {
	cfg := validConfig()
	cfg.Project.Weights = score.Weights{Velocity: 0.3, Relevance: 0.3, Openness: 0.2, AuthorQuality: 0.1}
	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "project.weights", verr.Field)
}

func TestValidateWeightSumWithinEpsilon(t *testing.T) {
	cfg := validConfig()
	// Off by less than the epsilon: accepted, never renormalized.
	cfg.Project.Weights = score.Weights{
		Velocity: 0.25, Relevance: 0.40, Openness: 0.20, AuthorQuality: 0.15 + 5e-7,
	}
	assert.NoError(t, cfg.Validate())

	cfg.Project.Weights.AuthorQuality = 0.15 + 5e-6
	assert.Error(t, cfg.Validate())
}

func TestValidateInvertedThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.Project.Thresholds = score.Thresholds{GreenMin: 0.4, YellowMin: 0.6}
	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "project.thresholds", verr.Field)
}

func TestValidateEqualThresholdsRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Project.Thresholds = score.Thresholds{GreenMin: 0.5, YellowMin: 0.5}
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// Weights sum to 1.2: must fail at load, not at scoring time.
	body := `
project:
  topics:
    - id: espresso
      label: home espresso
  weights:
    velocity: 0.5
    relevance: 0.4
    openness: 0.2
    author_quality: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
project:
  name: acme-coffee
  topics:
    - id: espresso
      label: home espresso
      description: consumer espresso machines and grinders
      exemplars:
        - "which entry level machine should I get?"
  blacklist_keywords: ["giveaway"]
  allowed_language: en
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-coffee", cfg.Project.Name)
	assert.Len(t, cfg.Project.Topics, 1)
	// Defaults survive a partial file.
	assert.InDelta(t, 1.0, cfg.Project.Weights.Sum(), WeightEpsilon)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
}
