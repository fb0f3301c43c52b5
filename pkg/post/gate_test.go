package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func samplePost() Post {
	return Post{
		ID:           "p1",
		Text:         "Does anyone know a good espresso grinder?",
		AuthorHandle: "@coffeenerd",
		Language:     "en",
		PostedAt:     time.Now().Add(-2 * time.Hour),
	}
}

func TestGatePasses(t *testing.T) {
	d := Gate(samplePost(), GateRules{AllowedLanguage: "en"})
	assert.True(t, d.Passed)
	assert.Equal(t, RejectNone, d.Reason)
	assert.Equal(t, "p1", d.PostID)
}

func TestGateLanguageMismatch(t *testing.T) {
	p := samplePost()
	p.Language = "de"
	d := Gate(p, GateRules{AllowedLanguage: "en"})
	assert.False(t, d.Passed)
	assert.Equal(t, RejectLanguage, d.Reason)
}

func TestGateNoLanguageRuleAllowsAnything(t *testing.T) {
	p := samplePost()
	p.Language = "fr"
	d := Gate(p, GateRules{})
	assert.True(t, d.Passed)
}

func TestGateBlacklistKeywordSubstring(t *testing.T) {
	p := samplePost()
	p.Text = "I love free shipping days"
	d := Gate(p, GateRules{BlacklistKeywords: []string{"free"}})
	assert.False(t, d.Passed)
	assert.Equal(t, RejectBlacklistKeyword, d.Reason)
}

func TestGateBlacklistKeywordCaseInsensitive(t *testing.T) {
	p := samplePost()
	p.Text = "GIVEAWAY starts now"
	d := Gate(p, GateRules{BlacklistKeywords: []string{"giveaway"}})
	assert.False(t, d.Passed)
}

func TestGateBlacklistHandleStripsAt(t *testing.T) {
	p := samplePost()
	p.AuthorHandle = "@SpamBot99"
	d := Gate(p, GateRules{BlacklistHandles: []string{"spambot99"}})
	assert.False(t, d.Passed)
	assert.Equal(t, RejectBlacklistHandle, d.Reason)
}

func TestGateWhitelistNotConsumedByGate(t *testing.T) {
	// Whitelisting an author must not bypass keyword blacklists; the
	// whitelist only feeds author quality downstream.
	p := samplePost()
	p.Text = "free stuff inside"
	d := Gate(p, GateRules{
		BlacklistKeywords: []string{"free"},
		WhitelistHandles:  []string{p.AuthorHandle},
	})
	assert.False(t, d.Passed)
	assert.Equal(t, RejectBlacklistKeyword, d.Reason)
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "brandfan", NormalizeHandle(" @BrandFan"))
	assert.Equal(t, "brandfan", NormalizeHandle("brandfan"))
}
