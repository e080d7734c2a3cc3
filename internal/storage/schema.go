package storage

const schema = `
-- The 'sources' table tracks where imported items come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- local | git
    last_scanned DATETIME
);

-- The 'items' table stores every review item with the state of both schedulers.
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    hash TEXT NOT NULL DEFAULT '',
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    easiness_factor REAL NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    difficulty REAL, -- NULL until the first FSRS review
    stability REAL,  -- NULL until the first FSRS review
    last_review DATETIME NOT NULL,
    next_review DATETIME NOT NULL,
    source_id INTEGER,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_hash ON items(hash) WHERE hash <> '';
CREATE INDEX IF NOT EXISTS idx_items_source ON items(source_id);

-- The 'review_logs' table keeps one row per answered review.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    quality INTEGER NOT NULL,
    algorithm TEXT NOT NULL DEFAULT '',

    FOREIGN KEY(item_id) REFERENCES items(id)
);

CREATE INDEX IF NOT EXISTS idx_review_logs_item ON review_logs(item_id);
`
