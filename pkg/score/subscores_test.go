package score

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/siftlabs/sift/pkg/post"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func postAged(age time.Duration, likes, replies, reposts int) post.Post {
	return post.Post{
		ID:       "p",
		Likes:    likes,
		Replies:  replies,
		Reposts:  reposts,
		PostedAt: now.Add(-age),
	}
}

func TestVelocityZeroEngagement(t *testing.T) {
	v := Velocity(postAged(2*time.Hour, 0, 0, 0), now, DefaultVelocityParams())
	assert.Equal(t, 0.0, v)
}

func TestVelocityReferenceRateScoresHalf(t *testing.T) {
	// 30 engagement points in exactly one hour == the reference rate.
	params := VelocityParams{ReferenceRate: 30, MinAge: time.Minute}
	v := Velocity(postAged(time.Hour, 30, 0, 0), now, params)
	assert.InDelta(t, 0.5, v, 1e-9)
}

func TestVelocityRewardsRecency(t *testing.T) {
	params := DefaultVelocityParams()
	fresh := Velocity(postAged(1*time.Hour, 50, 5, 2), now, params)
	stale := Velocity(postAged(24*time.Hour, 50, 5, 2), now, params)
	assert.Greater(t, fresh, stale, "same engagement, newer post must score higher")
}

func TestVelocityRepliesOutweighLikes(t *testing.T) {
	params := DefaultVelocityParams()
	replies := Velocity(postAged(2*time.Hour, 0, 10, 0), now, params)
	likes := Velocity(postAged(2*time.Hour, 10, 0, 0), now, params)
	assert.Greater(t, replies, likes)
}

func TestVelocityMinAgeFloorsBurst(t *testing.T) {
	params := VelocityParams{ReferenceRate: 30, MinAge: 15 * time.Minute}
	// A ten-second-old post with 2 likes must not look explosive.
	v := Velocity(postAged(10*time.Second, 2, 0, 0), now, params)
	assert.Less(t, v, 0.3)
}

func TestVelocityZeroAgeStaysFinite(t *testing.T) {
	// Feed items without a publish date get stamped with collection time, so
	// age is exactly zero at scoring. With only ReferenceRate configured the
	// min-age default must still apply, never a division by zero.
	params := VelocityParams{ReferenceRate: 30}
	v := Velocity(postAged(0, 10, 0, 0), now, params)
	assert.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestVelocityFutureTimestampStaysFinite(t *testing.T) {
	v := Velocity(postAged(-time.Minute, 10, 0, 0), now, VelocityParams{ReferenceRate: 30})
	assert.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestVelocityViewsIgnored(t *testing.T) {
	params := DefaultVelocityParams()
	p := postAged(2*time.Hour, 3, 0, 0)
	p.Views = 1_000_000
	withViews := Velocity(p, now, params)
	p.Views = 0
	assert.Equal(t, Velocity(p, now, params), withViews)
}

func TestVelocityBounded(t *testing.T) {
	v := Velocity(postAged(time.Hour, 100000, 100000, 100000), now, DefaultVelocityParams())
	assert.LessOrEqual(t, v, 1.0)
	assert.Greater(t, v, 0.9)
}

func TestRelevanceLinearMapping(t *testing.T) {
	m := LinearMapping(0.25, 0.75)
	assert.Equal(t, 0.0, Relevance(0.10, m), "below floor maps to zero")
	assert.Equal(t, 0.0, Relevance(0.2499, m))
	assert.InDelta(t, 0.5, Relevance(0.50, m), 1e-9)
	assert.InDelta(t, 1.0, Relevance(0.75, m), 1e-9)
	assert.Equal(t, 1.0, Relevance(0.95, m), "above target saturates")
}

func TestRelevanceDefaultMapping(t *testing.T) {
	assert.Equal(t, 0.0, Relevance(0.1, nil))
	assert.InDelta(t, 0.5, Relevance(0.5, nil), 1e-9)
}

func TestOpennessQuestionBeatsStatement(t *testing.T) {
	question := Openness(post.Post{Text: "Which grinder should I buy for espresso?"})
	statement := Openness(post.Post{Text: "Bought a grinder yesterday."})
	assert.Greater(t, question, statement)
}

func TestOpennessFirstPersonFraming(t *testing.T) {
	personal := Openness(post.Post{Text: "my machine keeps channeling every shot"})
	neutral := Openness(post.Post{Text: "the machine keeps channeling every shot"})
	assert.Greater(t, personal, neutral)
}

func TestOpennessLinkSpamPenalized(t *testing.T) {
	spam := Openness(post.Post{Text: "deals https://a.example https://b.example https://c.example #sale #deal #promo #shop"})
	honest := Openness(post.Post{Text: "is this deal any good?"})
	assert.Greater(t, honest, spam)
	assert.Less(t, spam, 0.2)
}

func TestOpennessEmptyText(t *testing.T) {
	assert.Equal(t, 0.0, Openness(post.Post{Text: "   "}))
}

func TestOpennessBounded(t *testing.T) {
	v := Openness(post.Post{Text: "Can anyone recommend what I should do? I'm stuck with my setup?"})
	assert.LessOrEqual(t, v, 1.0)
	assert.GreaterOrEqual(t, v, 0.0)
}

func TestAuthorQualityWhitelist(t *testing.T) {
	p := post.Post{AuthorHandle: "@GoodEgg"}
	assert.Equal(t, 1.0, AuthorQuality(p, []string{"goodegg"}))
	assert.Equal(t, 1.0, AuthorQuality(p, []string{"@GOODEGG"}))
}

func TestAuthorQualityUnknownIsNeutral(t *testing.T) {
	p := post.Post{AuthorHandle: "@stranger", AuthorFollowers: post.FollowersUnknown}
	assert.Equal(t, NeutralAuthorQuality, AuthorQuality(p, []string{"someoneelse"}))
	assert.Equal(t, NeutralAuthorQuality, AuthorQuality(p, nil))
}
