// Package score turns a gated-in post plus its topic match into four
// bounded subscores, a weighted total, and a traffic-light label.
package score

import "time"

// Label is the three-tier classification consumed downstream. Only green
// posts get an engagement response generated; yellow and red retain their
// score for re-classification if thresholds change.
type Label string

const (
	LabelGreen  Label = "green"
	LabelYellow Label = "yellow"
	LabelRed    Label = "red"
)

// Subscores are the four independent signals, each in [0,1].
type Subscores struct {
	Velocity      float64 `json:"velocity"`
	Relevance     float64 `json:"relevance"`
	Openness      float64 `json:"openness"`
	AuthorQuality float64 `json:"author_quality"`
}

// Clamped returns a copy with every subscore forced into [0,1]. Values
// outside the range are a programming error upstream; clamping keeps the
// total bounded regardless.
func (s Subscores) Clamped() Subscores {
	return Subscores{
		Velocity:      clamp01(s.Velocity),
		Relevance:     clamp01(s.Relevance),
		Openness:      clamp01(s.Openness),
		AuthorQuality: clamp01(s.AuthorQuality),
	}
}

// Weights control the contribution of each subscore. Must sum to 1.0; the
// config layer enforces this at load and never renormalizes.
type Weights struct {
	Velocity      float64 `yaml:"velocity" json:"velocity"`
	Relevance     float64 `yaml:"relevance" json:"relevance"`
	Openness      float64 `yaml:"openness" json:"openness"`
	AuthorQuality float64 `yaml:"author_quality" json:"author_quality"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Velocity + w.Relevance + w.Openness + w.AuthorQuality
}

// Thresholds map a total score to a label. GreenMin must be strictly above
// YellowMin.
type Thresholds struct {
	GreenMin  float64 `yaml:"green_min" json:"green_min"`
	YellowMin float64 `yaml:"yellow_min" json:"yellow_min"`
}

// Result is the full scoring outcome for one post in one run.
type Result struct {
	PostID              string    `json:"post_id" db:"post_id"`
	Subscores           Subscores `json:"subscores" db:"-"`
	BestTopicID         string    `json:"best_topic_id" db:"best_topic_id"`
	BestTopicSimilarity float64   `json:"best_topic_similarity" db:"best_topic_similarity"`
	TotalScore          float64   `json:"total_score" db:"total_score"`
	Label               Label     `json:"label" db:"label"`
	Rationale           string    `json:"rationale" db:"rationale"`
	ScoredAt            time.Time `json:"scored_at" db:"scored_at"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
