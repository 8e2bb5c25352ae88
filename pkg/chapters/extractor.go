// Package chapters extracts the ordered chapter list from a prospectus
// index page. Two markup families exist, selected by the document's
// publication epoch, with an explicit fallback chain between them.
package chapters

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"ipofetch/models"
	"ipofetch/pkg/textenc"
)

// ErrNoChapterList reports that the page decoded fine but neither strategy
// found any chapter references. Callers may respond by probing chapter
// numbers speculatively instead of treating the document as malformed.
var ErrNoChapterList = errors.New("chapters: no chapter list found in page")

// ErrInconsistentSequence reports duplicate or missing sequence numbers.
// The list is never silently repaired: a repaired list could hide a real
// parse defect.
var ErrInconsistentSequence = errors.New("chapters: chapter sequence is not contiguous from 1")

// ExtractionError is the fatal, document-level extraction failure.
type ExtractionError struct {
	DocumentID string
	Reason     string
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chapters: extraction failed for document %s: %s: %v", e.DocumentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("chapters: extraction failed for document %s: %s", e.DocumentID, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DefaultBadRuneThreshold is the replacement-rune ratio above which a
// legacy page is considered wrongly decoded and re-read byte-preserving.
const DefaultBadRuneThreshold = 0.10

// Extractor turns index-page bytes into an ordered chapter list.
type Extractor struct {
	// BadRuneThreshold overrides DefaultBadRuneThreshold when > 0.
	BadRuneThreshold float64

	// Encoding and EncodingConfidence record how the last input was
	// decoded, for downstream diagnostics.
	Encoding           string
	EncodingConfidence int

	// Text holds the decoded page text of the last Extract call, so
	// callers can run further scans without decoding again.
	Text string
}

// Extract parses the index page into chapters ordered by sequence number.
// The returned list is always contiguous from 1; anything else is an
// error, never a partial list.
func (e *Extractor) Extract(ref models.DocumentRef, html []byte) ([]models.ChapterRef, error) {
	switch ref.Epoch {
	case models.EpochLegacy:
		return e.extractLegacy(ref, html)
	default:
		return e.extractModern(ref, html)
	}
}

func (e *Extractor) extractModern(ref models.DocumentRef, html []byte) ([]models.ChapterRef, error) {
	res, err := textenc.DecodeModern(html)
	if err != nil {
		return nil, &ExtractionError{DocumentID: ref.DocumentID, Reason: "undecodable page", Err: err}
	}
	e.Encoding, e.EncodingConfidence, e.Text = res.Encoding, res.Confidence, res.Text

	list, err := anchorScan(ref, res.Text)
	if err != nil {
		return nil, &ExtractionError{DocumentID: ref.DocumentID, Reason: "anchor scan failed", Err: err}
	}
	return validateSequence(ref, list)
}

func (e *Extractor) extractLegacy(ref models.DocumentRef, html []byte) ([]models.ChapterRef, error) {
	threshold := e.BadRuneThreshold
	if threshold <= 0 {
		threshold = DefaultBadRuneThreshold
	}
	res := textenc.DecodeLegacy(html, threshold)
	e.Encoding, e.EncodingConfidence, e.Text = res.Encoding, res.Confidence, res.Text

	list, found, err := markerBlockScan(ref, res.Text)
	if err != nil {
		return nil, &ExtractionError{DocumentID: ref.DocumentID, Reason: "file list block malformed", Err: err}
	}
	if !found {
		// Some legacy pages still expose an anchor table; reuse the modern
		// scan on the same markup before giving up.
		list, err = anchorScan(ref, res.Text)
		if err != nil {
			return nil, &ExtractionError{DocumentID: ref.DocumentID, Reason: "anchor fallback failed", Err: err}
		}
	}
	return validateSequence(ref, list)
}

// validateSequence sorts by sequence number and enforces the contiguity
// invariant: sequence numbers 1..n with no duplicates and no gaps.
func validateSequence(ref models.DocumentRef, list []models.ChapterRef) ([]models.ChapterRef, error) {
	if len(list) == 0 {
		return nil, &ExtractionError{DocumentID: ref.DocumentID, Reason: "both strategies found nothing", Err: ErrNoChapterList}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	for i, ch := range list {
		want := i + 1
		if ch.Seq == want {
			continue
		}
		var reason string
		if i > 0 && ch.Seq == list[i-1].Seq {
			reason = fmt.Sprintf("duplicate chapter %d", ch.Seq)
		} else {
			reason = fmt.Sprintf("expected chapter %d, found %d", want, ch.Seq)
		}
		return nil, fmt.Errorf("%w: document %s: %s", ErrInconsistentSequence, ref.DocumentID, reason)
	}
	return list, nil
}

// ChapterURL constructs the canonical chapter-PDF URL for a sequence
// number, used when chapters are discovered by speculative numbering. The
// layout mirrors the relative pattern the anchor tables use:
// ../{documentId}/{documentId}_{n}.pdf next to the index page.
func ChapterURL(ref models.DocumentRef, seq int) (string, error) {
	return resolveRelative(ref.RawURL, fmt.Sprintf("../%s/%s_%d.pdf", ref.DocumentID, ref.DocumentID, seq))
}

func resolveRelative(base, rel string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("chapters: invalid base URL %q: %w", base, err)
	}
	r, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("chapters: invalid chapter link %q: %w", rel, err)
	}
	return b.ResolveReference(r).String(), nil
}
