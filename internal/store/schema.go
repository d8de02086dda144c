package store

// schemaVersionV1 is the current schema.
const schemaVersionV1 = 1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

-- Module-registry lookup cache for the deps check. One row per module
-- path; fetched_at drives the TTL.
CREATE TABLE IF NOT EXISTS module_cache (
	path       TEXT PRIMARY KEY,
	exists_    INTEGER NOT NULL,
	age_days   INTEGER NOT NULL,
	fetched_at TEXT NOT NULL
);

-- Rolling history of health snapshots, pruned to a fixed window.
CREATE TABLE IF NOT EXISTS metrics_history (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL UNIQUE,
	taken_at TEXT NOT NULL,
	payload  BLOB NOT NULL
);
`
