package db

import (
	"fmt"
	"time"

	"ipofetch/models"
)

// RunSummary is one row of fetch history.
type RunSummary struct {
	RunID           int64
	UpstreamID      string
	CompanyName     string
	StartedAt       time.Time
	ChaptersTotal   int
	ChaptersFetched int
	Complete        bool
}

// UpsertDocument inserts or refreshes the document row and returns its id.
func (db *DB) UpsertDocument(ref models.DocumentRef, companyName string) (int64, error) {
	var issueDate string
	if !ref.IssueDate.IsZero() {
		issueDate = ref.IssueDate.Format("2006-01-02")
	}

	_, err := db.Exec(`
		INSERT INTO documents (upstream_id, epoch, index_url, issue_date, company_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(upstream_id) DO UPDATE SET
			index_url = excluded.index_url,
			company_name = excluded.company_name
	`, ref.DocumentID, ref.Epoch.String(), ref.RawURL, issueDate, companyName)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}

	var id int64
	err = db.QueryRow("SELECT document_id FROM documents WHERE upstream_id = ?", ref.DocumentID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read back document id: %w", err)
	}
	return id, nil
}

// InsertRun records one fetch run and its per-chapter outcomes in a single
// transaction.
func (db *DB) InsertRun(documentID int64, total int, result models.DocumentFetchResult) (int64, error) {
	fetched, missing, failed := result.Counts()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO runs (document_id, chapters_total, chapters_fetched, chapters_missing, chapters_failed, complete, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, documentID, total, fetched, missing, failed, result.Complete, models.Version)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, o := range result.Outcomes {
		var errText string
		if o.Err != nil {
			errText = o.Err.Error()
		}
		_, err := tx.Exec(`
			INSERT INTO chapter_outcomes (run_id, seq, title, status, local_path, size_bytes, attempts, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, o.Chapter.Seq, o.Chapter.Title, o.Status.String(), o.LocalPath, o.ByteSize, o.Attempts, errText)
		if err != nil {
			return 0, fmt.Errorf("failed to insert chapter outcome %d: %w", o.Chapter.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the latest runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT r.run_id, d.upstream_id, COALESCE(d.company_name, ''), r.started_at,
		       r.chapters_total, r.chapters_fetched, r.complete
		FROM runs r
		JOIN documents d ON d.document_id = r.document_id
		ORDER BY r.run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.UpstreamID, &r.CompanyName, &r.StartedAt,
			&r.ChaptersTotal, &r.ChaptersFetched, &r.Complete); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
