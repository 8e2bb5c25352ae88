package db

import (
	"errors"
	"testing"
	"time"

	"ipofetch/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	db := &DB{DB: sqlDB, path: ":memory:"}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func testRef() models.DocumentRef {
	return models.DocumentRef{
		RawURL:     "https://www1.hkexnews.hk/listedco/listconews/sehk/2023/0630/10123456_c.htm",
		Epoch:      models.EpochModern,
		DocumentID: "10123456",
		IssueDate:  time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func testResult() models.DocumentFetchResult {
	return models.DocumentFetchResult{
		Ref: testRef(),
		Outcomes: map[int]models.ChapterFetchOutcome{
			1: {
				Chapter:   models.ChapterRef{Seq: 1, Title: "封面"},
				Status:    models.StatusFetched,
				LocalPath: "/out/ch1.pdf",
				ByteSize:  1024,
				Attempts:  1,
			},
			2: {
				Chapter:  models.ChapterRef{Seq: 2, Title: "概要"},
				Status:   models.StatusFailed,
				Attempts: 3,
				Err:      errors.New("server error"),
			},
		},
		Complete: false,
	}
}

func TestUpsertDocument(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id1, err := db.UpsertDocument(testRef(), "Acme Corp")
	if err != nil {
		t.Fatalf("UpsertDocument() failed: %v", err)
	}
	if id1 == 0 {
		t.Error("UpsertDocument() returned 0 id")
	}

	// Same upstream id maps to the same row, refreshed.
	id2, err := db.UpsertDocument(testRef(), "Acme Corporation")
	if err != nil {
		t.Fatalf("UpsertDocument() update failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("got different document ids: %d vs %d", id1, id2)
	}

	var company, epoch string
	err = db.QueryRow("SELECT company_name, epoch FROM documents WHERE document_id = ?", id1).Scan(&company, &epoch)
	if err != nil {
		t.Fatalf("failed to query document: %v", err)
	}
	if company != "Acme Corporation" {
		t.Errorf("company_name = %q, want the refreshed value", company)
	}
	if epoch != "modern" {
		t.Errorf("epoch = %q, want modern", epoch)
	}
}

func TestInsertRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	docID, err := db.UpsertDocument(testRef(), "Acme Corp")
	if err != nil {
		t.Fatalf("UpsertDocument() failed: %v", err)
	}

	runID, err := db.InsertRun(docID, 2, testResult())
	if err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}
	if runID == 0 {
		t.Error("InsertRun() returned 0 id")
	}

	var fetched, failed int
	var complete bool
	err = db.QueryRow(`
		SELECT chapters_fetched, chapters_failed, complete
		FROM runs WHERE run_id = ?
	`, runID).Scan(&fetched, &failed, &complete)
	if err != nil {
		t.Fatalf("failed to query run: %v", err)
	}
	if fetched != 1 || failed != 1 {
		t.Errorf("fetched = %d, failed = %d, want 1 and 1", fetched, failed)
	}
	if complete {
		t.Error("complete = true, want false")
	}

	var outcomes int
	if err := db.QueryRow("SELECT COUNT(*) FROM chapter_outcomes WHERE run_id = ?", runID).Scan(&outcomes); err != nil {
		t.Fatalf("failed to count outcomes: %v", err)
	}
	if outcomes != 2 {
		t.Errorf("got %d chapter outcomes, want 2", outcomes)
	}

	var status, errText string
	err = db.QueryRow(`
		SELECT status, error FROM chapter_outcomes WHERE run_id = ? AND seq = 2
	`, runID).Scan(&status, &errText)
	if err != nil {
		t.Fatalf("failed to query outcome: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if errText != "server error" {
		t.Errorf("error = %q", errText)
	}
}

func TestRecentRuns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	docID, _ := db.UpsertDocument(testRef(), "Acme Corp")
	for i := 0; i < 3; i++ {
		if _, err := db.InsertRun(docID, 2, testResult()); err != nil {
			t.Fatalf("InsertRun() failed: %v", err)
		}
	}

	runs, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID <= runs[1].RunID {
		t.Errorf("runs not newest-first: %d then %d", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].CompanyName != "Acme Corp" {
		t.Errorf("CompanyName = %q", runs[0].CompanyName)
	}
	if runs[0].ChaptersFetched != 1 || runs[0].ChaptersTotal != 2 {
		t.Errorf("counts = %d/%d, want 1/2", runs[0].ChaptersFetched, runs[0].ChaptersTotal)
	}
}

func TestRecentRuns_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs from an empty database", len(runs))
	}
}
