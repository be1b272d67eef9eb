package store

// migration holds a single schema migration with its target version
// and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Each
// migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	message_id    TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	start_time    DATETIME NOT NULL,
	end_time      DATETIME NOT NULL,
	confidence    REAL NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'pending',
	note          TEXT NOT NULL DEFAULT '',
	failure_count INTEGER NOT NULL DEFAULT 0,
	detected_at   DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS created_events (
	id          TEXT PRIMARY KEY,
	message_id  TEXT NOT NULL,
	calendar_id TEXT NOT NULL,
	link        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	start_time  DATETIME NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE INDEX IF NOT EXISTS idx_created_events_message
	ON created_events(message_id);
CREATE INDEX IF NOT EXISTS idx_created_events_created
	ON created_events(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
