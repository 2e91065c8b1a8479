package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	todo  TEXT NOT NULL DEFAULT '',

	scheduled_start_date     TEXT NOT NULL DEFAULT '',
	scheduled_start_time     TEXT NOT NULL DEFAULT '',
	scheduled_end_date       TEXT NOT NULL DEFAULT '',
	scheduled_end_time       TEXT NOT NULL DEFAULT '',
	scheduled_all_day        INTEGER NOT NULL DEFAULT 0,
	scheduled_repeater_type  TEXT NOT NULL DEFAULT '',
	scheduled_repeater_value INTEGER NOT NULL DEFAULT 0,
	scheduled_repeater_unit  TEXT NOT NULL DEFAULT '',
	scheduled_warning_type   TEXT NOT NULL DEFAULT '',
	scheduled_warning_value  INTEGER NOT NULL DEFAULT 0,
	scheduled_warning_unit   TEXT NOT NULL DEFAULT '',

	deadline_start_date     TEXT NOT NULL DEFAULT '',
	deadline_start_time     TEXT NOT NULL DEFAULT '',
	deadline_end_date       TEXT NOT NULL DEFAULT '',
	deadline_end_time       TEXT NOT NULL DEFAULT '',
	deadline_all_day        INTEGER NOT NULL DEFAULT 0,
	deadline_repeater_type  TEXT NOT NULL DEFAULT '',
	deadline_repeater_value INTEGER NOT NULL DEFAULT 0,
	deadline_repeater_unit  TEXT NOT NULL DEFAULT '',
	deadline_warning_type   TEXT NOT NULL DEFAULT '',
	deadline_warning_value  INTEGER NOT NULL DEFAULT 0,
	deadline_warning_unit   TEXT NOT NULL DEFAULT '',

	ts_start_date     TEXT NOT NULL DEFAULT '',
	ts_start_time     TEXT NOT NULL DEFAULT '',
	ts_end_date       TEXT NOT NULL DEFAULT '',
	ts_end_time       TEXT NOT NULL DEFAULT '',
	ts_all_day        INTEGER NOT NULL DEFAULT 0,
	ts_repeater_type  TEXT NOT NULL DEFAULT '',
	ts_repeater_value INTEGER NOT NULL DEFAULT 0,
	ts_repeater_unit  TEXT NOT NULL DEFAULT '',
	ts_warning_type   TEXT NOT NULL DEFAULT '',
	ts_warning_value  INTEGER NOT NULL DEFAULT 0,
	ts_warning_unit   TEXT NOT NULL DEFAULT '',

	tags       TEXT NOT NULL DEFAULT '',
	file       TEXT NOT NULL DEFAULT '',
	parent     TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL DEFAULT 'task',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_kind ON tasks(kind);
CREATE INDEX IF NOT EXISTS idx_tasks_file ON tasks(file);

CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_hash TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	log         TEXT NOT NULL DEFAULT '',
	timestamp   DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
