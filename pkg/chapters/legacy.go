package chapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ipofetch/models"
)

// Legacy index pages embed the chapter files in an annotation block rather
// than (or in addition to) a visible anchor table. The block starts with a
// sentinel token and runs until a terminator token, one filename per line,
// optionally followed by the chapter title.
const (
	legacyListSentinel   = "<!--FILELIST"
	legacyListTerminator = "ENDLIST-->"
)

// fileSeqRe extracts the sequence number from a legacy chapter filename,
// e.g. "LTN20130628023_7.pdf" -> 7.
var fileSeqRe = regexp.MustCompile(`_(\d+)\.(?i:pdf)$`)

// markerBlockScan looks for the annotation block. found is false when the
// page simply has no block (the caller then falls back to the anchor
// scan); err is non-nil only when a block exists but is malformed.
func markerBlockScan(ref models.DocumentRef, text string) (chapters []models.ChapterRef, found bool, err error) {
	start := strings.Index(text, legacyListSentinel)
	if start < 0 {
		return nil, false, nil
	}
	rest := text[start+len(legacyListSentinel):]
	end := strings.Index(rest, legacyListTerminator)
	if end < 0 {
		return nil, true, fmt.Errorf("file list block at offset %d has no terminator", start)
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		filename := fields[0]

		m := fileSeqRe.FindStringSubmatch(filename)
		if m == nil {
			return nil, true, fmt.Errorf("file list entry %q has no sequence suffix", filename)
		}
		seq, convErr := strconv.Atoi(m[1])
		if convErr != nil || seq < 1 {
			return nil, true, fmt.Errorf("file list entry %q has invalid sequence number", filename)
		}

		title := strings.TrimSpace(strings.TrimPrefix(line, filename))
		if title == "" {
			title = strings.TrimSuffix(filename, filename[strings.LastIndex(filename, "."):])
		}

		abs, resolveErr := legacyFileURL(ref, filename)
		if resolveErr != nil {
			return nil, true, resolveErr
		}
		chapters = append(chapters, models.ChapterRef{Seq: seq, Title: title, SourceURL: abs})
	}
	return chapters, true, nil
}

// legacyFileURL resolves a file-list entry against the index page. Bare
// filenames live in the sibling directory named after the document id,
// matching the layout the anchor tables link to; entries that already
// carry a path are resolved as written.
func legacyFileURL(ref models.DocumentRef, entry string) (string, error) {
	if strings.Contains(entry, "/") {
		return resolveRelative(ref.RawURL, entry)
	}
	return resolveRelative(ref.RawURL, fmt.Sprintf("../%s/%s", ref.DocumentID, entry))
}
