package score

import (
	"strings"
	"time"
	"unicode"

	"github.com/siftlabs/sift/pkg/post"
)

// VelocityParams scale raw engagement rate against a project-wide reference.
type VelocityParams struct {
	// ReferenceRate is the engagement-points-per-hour a strong post on this
	// project earns; a post at exactly this rate scores 0.5.
	ReferenceRate float64
	// MinAge floors the age used for rate computation so brand-new posts
	// with one like do not look explosive.
	MinAge time.Duration
}

// DefaultVelocityParams work for mid-size consumer brands.
func DefaultVelocityParams() VelocityParams {
	return VelocityParams{ReferenceRate: 30, MinAge: 15 * time.Minute}
}

// Velocity scores how fast a post is accumulating engagement, in [0,1].
// Replies weigh heaviest (a conversation is forming), then reposts, then
// likes. Views are deliberately excluded: raw cumulative reach is not a
// signal that the post is still moving.
func Velocity(p post.Post, now time.Time, params VelocityParams) float64 {
	if params.ReferenceRate <= 0 {
		params = DefaultVelocityParams()
	}
	if params.MinAge <= 0 {
		params.MinAge = DefaultVelocityParams().MinAge
	}

	// Clock skew makes zero or negative ages routine; the floor keeps the
	// rate finite as well as damping brand-new posts.
	age := p.Age(now)
	if age < params.MinAge {
		age = params.MinAge
	}

	engagement := float64(p.Likes) + 2*float64(p.Replies) + 1.5*float64(p.Reposts)
	rate := engagement / age.Hours()

	// Saturating scale: 0 at no engagement, 0.5 at the reference rate,
	// approaching 1 as the rate blows past it.
	return clamp01(rate / (rate + params.ReferenceRate))
}

// SimilarityMapping converts a raw cosine similarity into a relevance
// subscore. Pluggable so the calibration curve can be tuned without
// touching the taxonomy matcher.
type SimilarityMapping func(similarity float64) float64

// LinearMapping ramps linearly from 0 at floor to 1 at target; anything
// below the floor is flat zero.
func LinearMapping(floor, target float64) SimilarityMapping {
	return func(sim float64) float64 {
		if sim < floor {
			return 0
		}
		if target <= floor {
			return 1
		}
		return clamp01((sim - floor) / (target - floor))
	}
}

// Relevance maps a topic-match similarity to [0,1] via the given mapping.
func Relevance(similarity float64, mapping SimilarityMapping) float64 {
	if mapping == nil {
		mapping = LinearMapping(0.25, 0.75)
	}
	return clamp01(mapping(similarity))
}

var questionLeads = []string{
	"how", "what", "which", "why", "where", "when", "who",
	"does", "do", "is", "are", "can", "could", "should", "any",
}

var firstPersonTokens = map[string]bool{
	"i": true, "i'm": true, "i've": true, "im": true, "my": true,
	"me": true, "we": true, "our": true, "mine": true,
}

// Openness estimates how answerable a post is, in [0,1]. A deterministic
// heuristic rather than a learned classifier so every score is auditable:
// questions and first-person framing invite a reply, link dumps do not.
func Openness(p post.Post) float64 {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return unicode.IsSpace(r)
	})

	v := 0.15

	if strings.Contains(text, "?") {
		v += 0.40
	} else if len(words) > 0 {
		lead := strings.Trim(words[0], ".,!:;")
		for _, q := range questionLeads {
			if lead == q {
				v += 0.20
				break
			}
		}
	}

	if strings.Contains(lower, "anyone") || strings.Contains(lower, "recommend") {
		v += 0.15
	}

	for _, w := range words {
		if firstPersonTokens[strings.Trim(w, ".,!?:;")] {
			v += 0.20
			break
		}
	}

	links := strings.Count(lower, "http://") + strings.Count(lower, "https://")
	if links > 0 {
		penalty := 0.15 * float64(links)
		if penalty > 0.45 {
			penalty = 0.45
		}
		v -= penalty
	}

	if strings.Count(text, "#") >= 4 {
		v -= 0.20
	}

	return clamp01(v)
}

// NeutralAuthorQuality is what an unknown author scores. A known limitation:
// until the whitelist is populated this contributes a near-constant offset.
// Do not change it quietly; downstream thresholds are tuned around it.
const NeutralAuthorQuality = 0.5

// AuthorQuality scores the author in [0,1]. Whitelisted handles score 1.0,
// everyone else gets the neutral default. Blacklisted authors never reach
// this point; the gate already dropped them.
func AuthorQuality(p post.Post, whitelistHandles []string) float64 {
	handle := post.NormalizeHandle(p.AuthorHandle)
	for _, w := range whitelistHandles {
		if handle == post.NormalizeHandle(w) {
			return 1.0
		}
	}
	return NeutralAuthorQuality
}
