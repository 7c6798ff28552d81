package journal

const schema = `
CREATE TABLE IF NOT EXISTS action_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    serial TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    package TEXT NOT NULL,
    kind TEXT NOT NULL,
    outcome TEXT NOT NULL,
    retries INTEGER NOT NULL DEFAULT 0,
    prev_installed BOOLEAN NOT NULL,
    prev_enabled BOOLEAN NOT NULL,
    prev_system BOOLEAN NOT NULL,
    error TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_target ON action_records(package, serial, user_id);
`
