package post

import "time"

// FollowersUnknown marks a post whose author follower count was not supplied
// by the ingestion side.
const FollowersUnknown = -1

// Post is a candidate social-media post produced by an ingestion collaborator.
// It is immutable input: the engine never mutates posts, only scores them.
type Post struct {
	ID              string    `json:"id" db:"id"`
	Text            string    `json:"text" db:"text"`
	AuthorHandle    string    `json:"author_handle" db:"author_handle"`
	AuthorFollowers int64     `json:"author_followers" db:"author_followers"`
	Likes           int       `json:"likes" db:"likes"`
	Replies         int       `json:"replies" db:"replies"`
	Reposts         int       `json:"reposts" db:"reposts"`
	Views           int       `json:"views" db:"views"`
	Language        string    `json:"language" db:"language"`
	PostedAt        time.Time `json:"posted_at" db:"posted_at"`
	CollectedAt     time.Time `json:"collected_at" db:"collected_at"`
}

// Age returns how long the post has been live at the given instant.
func (p Post) Age(now time.Time) time.Duration {
	return now.Sub(p.PostedAt)
}
