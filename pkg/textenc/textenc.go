// Package textenc decodes index-page bytes into text. The exchange served
// modern pages as UTF-8 (occasionally mislabeled) and legacy pages as Big5,
// so decoding is a pure cascade of candidate decoders rather than
// exception-driven guesswork.
package textenc

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Result is the outcome of one decode: the text, the name of the encoding
// that produced it, and a 0-100 confidence.
type Result struct {
	Text       string
	Encoding   string
	Confidence int
}

// metaCharsetRe matches both <meta charset="..."> and the older
// http-equiv content="text/html; charset=..." declaration.
var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-zA-Z0-9_.:-]+)`)

// DeclaredCharset returns the charset declared inside the markup, if any.
// Only the head of the document is scanned.
func DeclaredCharset(raw []byte) string {
	head := raw
	if len(head) > 4096 {
		head = head[:4096]
	}
	m := metaCharsetRe.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

// DecodeModern decodes a modern-era page. UTF-8 is the default; a charset
// declaration inside the markup that disagrees corrects it, and chardet is
// consulted when the bytes are not valid UTF-8 and nothing is declared.
func DecodeModern(raw []byte) (Result, error) {
	declared := DeclaredCharset(raw)
	if declared != "" && declared != "utf-8" && declared != "utf8" {
		text, err := decodeNamed(raw, declared)
		if err == nil {
			return Result{Text: text, Encoding: declared, Confidence: 90}, nil
		}
		// Unknown declared name; fall through to detection.
	}

	if utf8.Valid(raw) {
		return Result{Text: string(raw), Encoding: "utf-8", Confidence: 100}, nil
	}

	if det, err := chardet.NewHtmlDetector().DetectBest(raw); err == nil {
		if text, err := decodeNamed(raw, det.Charset); err == nil {
			return Result{Text: text, Encoding: strings.ToLower(det.Charset), Confidence: det.Confidence}, nil
		}
	}

	return Result{}, fmt.Errorf("textenc: cannot decode page as utf-8 or any detected charset")
}

// DecodeLegacy decodes a legacy-era page. Big5 is tried first; if the
// decoded text carries more than maxBadRatio replacement runes the bytes
// are re-decoded with the byte-preserving ISO-8859-1 mapping instead, and
// the result records that distinction.
func DecodeLegacy(raw []byte, maxBadRatio float64) Result {
	dec := traditionalchinese.Big5.NewDecoder()
	text, err := dec.String(string(raw))
	if err == nil && replacementRatio(text) <= maxBadRatio {
		return Result{Text: text, Encoding: "big5", Confidence: 80}
	}

	// Byte-preserving fallback: every byte maps to exactly one rune, so no
	// information is lost even when the true encoding is unknown.
	latin, _ := charmap.ISO8859_1.NewDecoder().String(string(raw))
	return Result{Text: latin, Encoding: "iso-8859-1", Confidence: 30}
}

func decodeNamed(raw []byte, name string) (string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("textenc: unknown charset %q: %w", name, err)
	}
	text, err := enc.NewDecoder().String(string(raw))
	if err != nil {
		return "", fmt.Errorf("textenc: decoding as %q failed: %w", name, err)
	}
	return text, nil
}

func replacementRatio(text string) float64 {
	if text == "" {
		return 0
	}
	total, bad := 0, 0
	for _, r := range text {
		total++
		if r == utf8.RuneError {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
