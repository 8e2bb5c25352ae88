package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Documents: one row per distinct prospectus, keyed by its upstream id
CREATE TABLE IF NOT EXISTS documents (
    document_id INTEGER PRIMARY KEY AUTOINCREMENT,
    upstream_id TEXT NOT NULL UNIQUE,
    epoch TEXT NOT NULL,
    index_url TEXT NOT NULL,
    issue_date TEXT,
    company_name TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_upstream ON documents(upstream_id);

-- Runs: every fetch attempt against a document
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    chapters_total INTEGER NOT NULL,
    chapters_fetched INTEGER NOT NULL,
    chapters_missing INTEGER NOT NULL,
    chapters_failed INTEGER NOT NULL,
    complete BOOLEAN NOT NULL,
    tool_version TEXT NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(document_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document_id);

-- Chapter outcomes: per-chapter terminal status within a run
CREATE TABLE IF NOT EXISTS chapter_outcomes (
    outcome_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    title TEXT,
    status TEXT NOT NULL,
    local_path TEXT,
    size_bytes INTEGER DEFAULT 0,
    attempts INTEGER DEFAULT 0,
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run ON chapter_outcomes(run_id);
`
