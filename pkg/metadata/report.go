package metadata

import (
	"fmt"
	"sort"
	"strings"

	"ipofetch/internal/common"
	"ipofetch/models"
)

// SummaryReport renders the human-readable run report that is written next
// to the metadata file and printed at the end of a fetch.
func SummaryReport(rec DocumentRecord, result models.DocumentFetchResult) string {
	fetched, notFound, failed := result.Counts()
	total := rec.TotalChapters
	var totalSize int64
	for _, ch := range rec.Chapters {
		totalSize += ch.FileSize
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Prospectus download report")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "\nCompany:      %s\n", rec.CompanyName)
	fmt.Fprintf(&b, "Document ID:  %s (%s)\n", rec.DocumentID, rec.Epoch)
	fmt.Fprintf(&b, "Source URL:   %s\n", rec.OriginalURL)
	fmt.Fprintf(&b, "Date:         %s\n\n", rec.DownloadDate)

	fmt.Fprintln(&b, "Download statistics:")
	fmt.Fprintf(&b, "  chapters:   %d\n", total)
	fmt.Fprintf(&b, "  fetched:    %d\n", fetched)
	fmt.Fprintf(&b, "  not found:  %d\n", notFound)
	fmt.Fprintf(&b, "  failed:     %d\n", failed)
	fmt.Fprintf(&b, "  total size: %s\n", common.FormatFileSize(totalSize))
	fmt.Fprintf(&b, "  complete:   %v\n\n", rec.Complete)

	if len(rec.Chapters) > 0 {
		fmt.Fprintln(&b, "Fetched chapters:")
		for _, ch := range rec.Chapters {
			fmt.Fprintf(&b, "  %2d. %s (%s)\n", ch.ChapterNumber, ch.ChapterTitle, common.FormatFileSize(ch.FileSize))
		}
		fmt.Fprintln(&b)
	}

	if errs := collectErrors(result); len(errs) > 0 {
		fmt.Fprintln(&b, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		fmt.Fprintln(&b)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	fmt.Fprintf(&b, "ipofetch %s\n", rec.ToolVersion)
	fmt.Fprintln(&b, rule)
	return b.String()
}

func collectErrors(result models.DocumentFetchResult) []string {
	seqs := make([]int, 0, len(result.Outcomes))
	for seq := range result.Outcomes {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var errs []string
	for _, seq := range seqs {
		o := result.Outcomes[seq]
		if o.Status == models.StatusFailed && o.Err != nil {
			errs = append(errs, fmt.Sprintf("chapter %d: %v", seq, o.Err))
		}
	}
	return errs
}
