package post

import "strings"

// RejectReason explains why a post was stopped at the gate.
type RejectReason string

const (
	RejectNone             RejectReason = "none"
	RejectLanguage         RejectReason = "language"
	RejectBlacklistKeyword RejectReason = "blacklist_keyword"
	RejectBlacklistHandle  RejectReason = "blacklist_handle"
)

// GateDecision is the outcome of gating a single post. Recomputed every run.
type GateDecision struct {
	PostID string       `json:"post_id"`
	Passed bool         `json:"passed"`
	Reason RejectReason `json:"reason"`
}

// KeywordMatcher decides whether a keyword from the blacklist hits a text.
// The substring implementation is the only one today; whole-word or regex
// matching can be swapped in without touching gate control flow.
type KeywordMatcher interface {
	Matches(text, keyword string) bool
}

// SubstringMatcher matches case-insensitively anywhere in the text. This
// over-matches on purpose ("free" hits "free time"); the blacklist is meant
// to be conservative and false positives are accepted product behavior.
type SubstringMatcher struct{}

func (SubstringMatcher) Matches(text, keyword string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// GateRules are the hard exclusion rules applied before any semantic work.
// The whitelist is carried here for config cohesion but is consumed by the
// author-quality subscore, never by the gate itself.
type GateRules struct {
	AllowedLanguage   string
	BlacklistKeywords []string
	BlacklistHandles  []string
	WhitelistHandles  []string
	Matcher           KeywordMatcher
}

// Gate applies the exclusion rules to one post. Pure function: no I/O, no
// embedding calls, safe to run on every post before anything expensive.
func Gate(p Post, rules GateRules) GateDecision {
	matcher := rules.Matcher
	if matcher == nil {
		matcher = SubstringMatcher{}
	}

	if rules.AllowedLanguage != "" && !strings.EqualFold(p.Language, rules.AllowedLanguage) {
		return GateDecision{PostID: p.ID, Passed: false, Reason: RejectLanguage}
	}

	for _, kw := range rules.BlacklistKeywords {
		if matcher.Matches(p.Text, kw) {
			return GateDecision{PostID: p.ID, Passed: false, Reason: RejectBlacklistKeyword}
		}
	}

	handle := NormalizeHandle(p.AuthorHandle)
	for _, blocked := range rules.BlacklistHandles {
		if handle == NormalizeHandle(blocked) {
			return GateDecision{PostID: p.ID, Passed: false, Reason: RejectBlacklistHandle}
		}
	}

	return GateDecision{PostID: p.ID, Passed: true, Reason: RejectNone}
}

// NormalizeHandle lowercases a handle and strips a leading @ so that
// "@BrandFan" and "brandfan" compare equal.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
