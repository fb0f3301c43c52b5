package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testWeights = Weights{Velocity: 0.3, Relevance: 0.4, Openness: 0.2, AuthorQuality: 0.1}

func TestClassifyWeightedSum(t *testing.T) {
	ss := Subscores{Velocity: 0.8, Relevance: 0.9, Openness: 0.5, AuthorQuality: 0.6}
	total, label := Classify(ss, testWeights, Thresholds{GreenMin: 0.6, YellowMin: 0.4})
	assert.InDelta(t, 0.76, total, 1e-9)
	assert.Equal(t, LabelGreen, label)
}

func TestClassifyExactBoundaries(t *testing.T) {
	th := Thresholds{GreenMin: 0.6, YellowMin: 0.4}
	// Quarter weights are exact in binary floating point, so a uniform
	// subscore value passes through as total == value bit for bit and the
	// boundary comparisons below are exact.
	quarters := Weights{Velocity: 0.25, Relevance: 0.25, Openness: 0.25, AuthorQuality: 0.25}
	cases := []struct {
		value float64
		want  Label
	}{
		{0.60, LabelGreen},  // total == green_min is green
		{0.5999, LabelYellow},
		{0.40, LabelYellow}, // total == yellow_min is yellow
		{0.3999, LabelRed},
		{0.0, LabelRed},
		{1.0, LabelGreen},
	}
	for _, tc := range cases {
		ss := Subscores{Velocity: tc.value, Relevance: tc.value, Openness: tc.value, AuthorQuality: tc.value}
		total, label := Classify(ss, quarters, th)
		assert.InDelta(t, tc.value, total, 1e-9)
		assert.Equal(t, tc.want, label, "total %.4f", tc.value)
	}
}

func TestClassifyTotalBounded(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 0.75, 1} {
		ss := Subscores{Velocity: v, Relevance: 1 - v, Openness: v, AuthorQuality: 1 - v}
		total, _ := Classify(ss, testWeights, Thresholds{GreenMin: 0.6, YellowMin: 0.4})
		assert.GreaterOrEqual(t, total, 0.0)
		assert.LessOrEqual(t, total, 1.0)
	}
}

func TestClassifyClampsOutOfRangeSubscores(t *testing.T) {
	ss := Subscores{Velocity: 1.7, Relevance: -0.5, Openness: 0.5, AuthorQuality: 0.5}
	total, _ := Classify(ss, testWeights, Thresholds{GreenMin: 0.6, YellowMin: 0.4})
	// 1.0*0.3 + 0*0.4 + 0.5*0.2 + 0.5*0.1
	assert.InDelta(t, 0.45, total, 1e-9)
}

func TestClassifyDeterministic(t *testing.T) {
	ss := Subscores{Velocity: 0.33, Relevance: 0.77, Openness: 0.21, AuthorQuality: 0.5}
	th := Thresholds{GreenMin: 0.6, YellowMin: 0.4}
	t1, l1 := Classify(ss, testWeights, th)
	t2, l2 := Classify(ss, testWeights, th)
	assert.Equal(t, t1, t2)
	assert.Equal(t, l1, l2)
}

func TestRationaleNamesDominantDrivers(t *testing.T) {
	ss := Subscores{Velocity: 0.9, Relevance: 0.1, Openness: 0.5, AuthorQuality: 0.5}
	got := Rationale(ss, "espresso")
	assert.Equal(t, "high velocity, weak topic match (espresso)", got)
}

func TestRationaleModerateSignals(t *testing.T) {
	ss := Subscores{Velocity: 0.5, Relevance: 0.5, Openness: 0.5, AuthorQuality: 0.5}
	assert.Equal(t, "moderate signals across the board", Rationale(ss, "espresso"))
}

func TestRationaleDeterministic(t *testing.T) {
	ss := Subscores{Velocity: 0.8, Relevance: 0.75, Openness: 0.1, AuthorQuality: 1.0}
	assert.Equal(t, Rationale(ss, "t"), Rationale(ss, "t"))
}
