package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ipofetch/models"
)

func sampleResult() (models.DocumentRef, models.DocumentFetchResult) {
	ref := models.DocumentRef{
		RawURL:     "https://www1.hkexnews.hk/listedco/listconews/sehk/2023/0630/10123456_c.htm",
		Epoch:      models.EpochModern,
		DocumentID: "10123456",
		IssueDate:  time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	result := models.DocumentFetchResult{
		Ref: ref,
		Outcomes: map[int]models.ChapterFetchOutcome{
			1: {
				Chapter:   models.ChapterRef{Seq: 1, Title: "封面", SourceURL: "https://example.com/10123456_1.pdf"},
				Status:    models.StatusFetched,
				LocalPath: "/tmp/x/ch1.pdf",
				ByteSize:  1024,
				Attempts:  1,
			},
			2: {
				Chapter:  models.ChapterRef{Seq: 2, Title: "概要"},
				Status:   models.StatusFailed,
				Attempts: 3,
				Err:      errors.New("server error"),
			},
			3: {
				Chapter:   models.ChapterRef{Seq: 3, Title: "風險因素", SourceURL: "https://example.com/10123456_3.pdf"},
				Status:    models.StatusFetched,
				LocalPath: "/tmp/x/ch3.pdf",
				ByteSize:  2048,
				Attempts:  1,
			},
		},
		Complete: false,
	}
	return ref, result
}

func TestBuildDocument(t *testing.T) {
	ref, result := sampleResult()
	g := &Generator{}

	rec := g.BuildDocument(ref, "德林國際", 3, result)

	if rec.DocumentID != "10123456" {
		t.Errorf("DocumentID = %q", rec.DocumentID)
	}
	if rec.CompanyName != "德林國際" {
		t.Errorf("CompanyName = %q", rec.CompanyName)
	}
	if rec.TotalChapters != 3 {
		t.Errorf("TotalChapters = %d, want 3", rec.TotalChapters)
	}
	if rec.Complete {
		t.Error("Complete = true, want false")
	}
	if rec.ToolVersion != models.Version {
		t.Errorf("ToolVersion = %q", rec.ToolVersion)
	}

	// Only fetched chapters become records, in sequence order.
	if len(rec.Chapters) != 2 {
		t.Fatalf("got %d chapter records, want 2", len(rec.Chapters))
	}
	if rec.Chapters[0].ChapterNumber != 1 || rec.Chapters[1].ChapterNumber != 3 {
		t.Errorf("chapter numbers = %d, %d", rec.Chapters[0].ChapterNumber, rec.Chapters[1].ChapterNumber)
	}
	if rec.Chapters[1].FileSize != 2048 {
		t.Errorf("FileSize = %d, want 2048", rec.Chapters[1].FileSize)
	}
}

func TestSave(t *testing.T) {
	ref, result := sampleResult()
	g := &Generator{}
	rec := g.BuildDocument(ref, "德林國際", 3, result)

	dir := t.TempDir()
	path, err := g.Save(rec, dir)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if want := filepath.Join(dir, "德林國際_10123456_metadata.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got DocumentRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("metadata file is not valid JSON: %v", err)
	}
	if got.DocumentID != rec.DocumentID || len(got.Chapters) != len(rec.Chapters) {
		t.Errorf("round-tripped record differs: %+v", got)
	}
}

func TestSummaryReport(t *testing.T) {
	ref, result := sampleResult()
	g := &Generator{}
	rec := g.BuildDocument(ref, "德林國際", 3, result)

	report := SummaryReport(rec, result)

	for _, want := range []string{
		"德林國際",
		"10123456",
		"fetched:    2",
		"failed:     1",
		"chapter 2: server error",
		"風險因素",
		models.Version,
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestSummaryReport_IncludesWarnings(t *testing.T) {
	ref, result := sampleResult()
	result.Warnings = []string{"document 10123456: chapter 2 of 3 missing upstream (not found)"}
	g := &Generator{}
	rec := g.BuildDocument(ref, "x", 3, result)

	report := SummaryReport(rec, result)
	if !strings.Contains(report, "missing upstream") {
		t.Errorf("report missing warning:\n%s", report)
	}
}
