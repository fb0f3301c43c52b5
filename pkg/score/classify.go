package score

import (
	"fmt"
	"strings"
)

// Classify combines clamped subscores into a weighted total and maps it to
// a label. With weights summing to 1.0 and subscores in [0,1], the total is
// guaranteed to land in [0,1].
func Classify(ss Subscores, w Weights, th Thresholds) (float64, Label) {
	c := ss.Clamped()
	total := c.Velocity*w.Velocity +
		c.Relevance*w.Relevance +
		c.Openness*w.Openness +
		c.AuthorQuality*w.AuthorQuality

	switch {
	case total >= th.GreenMin:
		return total, LabelGreen
	case total >= th.YellowMin:
		return total, LabelYellow
	default:
		return total, LabelRed
	}
}

// Rationale renders a deterministic one-line explanation of the dominant
// score drivers for human review. Same subscores, same string.
func Rationale(ss Subscores, topicID string) string {
	c := ss.Clamped()

	var parts []string
	add := func(value float64, high, low string) {
		switch {
		case value >= 0.7:
			parts = append(parts, high)
		case value < 0.3:
			parts = append(parts, low)
		}
	}

	add(c.Velocity, "high velocity", "low velocity")
	if topicID != "" {
		add(c.Relevance,
			fmt.Sprintf("strong topic match (%s)", topicID),
			fmt.Sprintf("weak topic match (%s)", topicID))
	} else {
		add(c.Relevance, "strong topic match", "weak topic match")
	}
	add(c.Openness, "very answerable", "hard to engage")
	add(c.AuthorQuality, "trusted author", "unvetted author")

	if len(parts) == 0 {
		return "moderate signals across the board"
	}
	return strings.Join(parts, ", ")
}
