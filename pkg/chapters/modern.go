package chapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ipofetch/models"
)

// sizeNoteRe strips the file-size annotation some anchor tables append to
// the visible chapter title, e.g. "Risk Factors (1.2MB)".
var sizeNoteRe = regexp.MustCompile(`(?i)\s*\(\s*[\d.,]+\s*[KMG]?B\s*\)\s*$`)

// leadingNumberRe strips a redundant "3." / "03 -" numbering prefix from
// the visible title; the sequence number comes from the link target.
var leadingNumberRe = regexp.MustCompile(`^\s*\d{1,3}\s*[.、\-–]\s*`)

// anchorScan walks every anchor in the markup and keeps the ones whose
// target matches the chapter-file pattern ../{id}/{id}_{n}.{ext}. The
// anchor's visible text becomes the chapter title.
func anchorScan(ref models.DocumentRef, text string) ([]models.ChapterRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	id := regexp.QuoteMeta(ref.DocumentID)
	linkRe := regexp.MustCompile(`(?i)(?:^|/)` + id + `/` + id + `_(\d+)\.([a-z0-9]+)$`)

	var chapters []models.ChapterRef
	var scanErr error
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if scanErr != nil {
			return
		}
		href, _ := s.Attr("href")
		m := linkRe.FindStringSubmatch(strings.TrimSpace(href))
		if m == nil {
			return
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil || seq < 1 {
			return
		}
		abs, err := resolveRelative(ref.RawURL, strings.TrimSpace(href))
		if err != nil {
			scanErr = err
			return
		}
		chapters = append(chapters, models.ChapterRef{
			Seq:       seq,
			Title:     cleanTitle(s.Text(), seq),
			SourceURL: abs,
		})
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return chapters, nil
}

// cleanTitle trims whitespace and boilerplate from an anchor's visible
// text. An empty result falls back to a positional name so the chapter is
// still addressable.
func cleanTitle(raw string, seq int) string {
	t := strings.Join(strings.Fields(raw), " ")
	t = sizeNoteRe.ReplaceAllString(t, "")
	t = leadingNumberRe.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)
	if t == "" {
		return fmt.Sprintf("chapter %d", seq)
	}
	return t
}
