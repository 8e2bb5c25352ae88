// Package models defines the data structures shared across the fetch pipeline.
package models

import (
	"fmt"
	"sort"
	"time"
)

// Epoch identifies which of the two historical publication formats a
// prospectus index page belongs to.
type Epoch int

const (
	EpochModern Epoch = iota
	EpochLegacy
)

func (e Epoch) String() string {
	switch e {
	case EpochModern:
		return "modern"
	case EpochLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("epoch(%d)", int(e))
	}
}

// DocumentRef is the classified identity of one prospectus index page.
// It is produced once by identify.Classify and never mutated afterwards.
type DocumentRef struct {
	RawURL     string
	Epoch      Epoch
	DocumentID string
	IssueDate  time.Time
}

// ChapterRef is one entry of the ordered chapter list extracted from an
// index page. Seq is 1-based and contiguous; the extractor enforces that,
// not the downloader.
type ChapterRef struct {
	Seq       int
	Title     string
	SourceURL string
}

// FetchStatus is the terminal state of a single chapter download.
type FetchStatus int

const (
	StatusFetched FetchStatus = iota
	StatusNotFound
	StatusFailed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusFetched:
		return "fetched"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ChapterFetchOutcome records the terminal state of one chapter download.
// Immutable once the chapter settles.
type ChapterFetchOutcome struct {
	Chapter   ChapterRef
	Status    FetchStatus
	LocalPath string
	ByteSize  int64
	Attempts  int
	Err       error
}

// DocumentFetchResult aggregates the per-chapter outcomes of one document
// run. Outcomes is keyed by ChapterRef.Seq so the stop condition can be
// evaluated deterministically after all workers settle.
type DocumentFetchResult struct {
	Ref      DocumentRef
	Outcomes map[int]ChapterFetchOutcome
	Complete bool
	Warnings []string
}

// Fetched returns the outcomes with StatusFetched, ordered by sequence
// number.
func (r DocumentFetchResult) Fetched() []ChapterFetchOutcome {
	seqs := make([]int, 0, len(r.Outcomes))
	for seq := range r.Outcomes {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	var out []ChapterFetchOutcome
	for _, seq := range seqs {
		if o := r.Outcomes[seq]; o.Status == StatusFetched {
			out = append(out, o)
		}
	}
	return out
}

// Counts returns the number of fetched, not-found and failed chapters.
func (r DocumentFetchResult) Counts() (fetched, notFound, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusFetched:
			fetched++
		case StatusNotFound:
			notFound++
		case StatusFailed:
			failed++
		}
	}
	return fetched, notFound, failed
}

// PageMapEntry maps one chapter file onto the page space of the logical
// concatenated document. Entries are ordered by the lexicographic sort of
// Filename; start_page[i] = start_page[i-1] + page_count[i-1] with
// start_page[0] = 1 is a contract other tooling relies on.
type PageMapEntry struct {
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
	StartPage int    `json:"start_page"`
}
