package store

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id               TEXT PRIMARY KEY,
    text             TEXT NOT NULL,
    author_handle    TEXT NOT NULL DEFAULT '',
    author_followers INTEGER NOT NULL DEFAULT -1,
    likes            INTEGER NOT NULL DEFAULT 0,
    replies          INTEGER NOT NULL DEFAULT 0,
    reposts          INTEGER NOT NULL DEFAULT 0,
    views            INTEGER NOT NULL DEFAULT 0,
    language         TEXT NOT NULL DEFAULT '',
    posted_at        DATETIME NOT NULL,
    collected_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_collected_at ON posts(collected_at);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);

CREATE TABLE IF NOT EXISTS embeddings (
    key        TEXT PRIMARY KEY,
    dim        INTEGER NOT NULL,
    vector     TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id                TEXT NOT NULL,
    post_id               TEXT NOT NULL,
    velocity              REAL NOT NULL,
    relevance             REAL NOT NULL,
    openness              REAL NOT NULL,
    author_quality        REAL NOT NULL,
    best_topic_id         TEXT NOT NULL DEFAULT '',
    best_topic_similarity REAL NOT NULL DEFAULT 0,
    total_score           REAL NOT NULL,
    label                 TEXT NOT NULL,
    rationale             TEXT NOT NULL DEFAULT '',
    scored_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_post ON results(post_id);
CREATE INDEX IF NOT EXISTS idx_results_label ON results(label);
CREATE INDEX IF NOT EXISTS idx_results_score ON results(total_score);

CREATE TABLE IF NOT EXISTS skips (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL,
    post_id    TEXT NOT NULL,
    reason     TEXT NOT NULL,
    skipped_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skips_run ON skips(run_id);
`
