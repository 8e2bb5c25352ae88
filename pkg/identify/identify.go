// Package identify classifies prospectus index-page URLs into a document
// reference: publication epoch, document id and issue date.
package identify

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"ipofetch/models"
)

var (
	ErrInvalidURL          = errors.New("identify: not a recognizable prospectus index URL")
	ErrUnsupportedLanguage = errors.New("identify: only the Chinese-language edition is supported")
)

// legacyIDPrefix marks document ids from the pre-2010 publication system.
const legacyIDPrefix = "LTN"

// The exchange used two date layouts over time: /YYYY/MM/DD/ and the
// compact /YYYY/MMDD/.
var (
	datedPathRe   = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/[^/]+$`)
	compactPathRe = regexp.MustCompile(`/(\d{4})/(\d{2})(\d{2})/[^/]+$`)
	numericIDRe   = regexp.MustCompile(`^\d+$`)
	legacyIDRe    = regexp.MustCompile(`^[A-Z]+[A-Za-z0-9]+$`)
)

// Classify parses a raw index-page URL into a DocumentRef. It is a pure
// function: no network access, no side effects.
func Classify(rawURL string) (models.DocumentRef, error) {
	ref := models.DocumentRef{RawURL: rawURL}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ref, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	issueDate, err := parseIssueDate(u.Path)
	if err != nil {
		return ref, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}

	token, lang, err := splitIDToken(u.Path)
	if err != nil {
		return ref, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if !strings.EqualFold(lang, "c") {
		return ref, fmt.Errorf("%w: got language suffix %q", ErrUnsupportedLanguage, lang)
	}

	epoch, err := classifyToken(token)
	if err != nil {
		return ref, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}

	ref.Epoch = epoch
	ref.DocumentID = token
	ref.IssueDate = issueDate
	return ref, nil
}

func parseIssueDate(path string) (time.Time, error) {
	m := datedPathRe.FindStringSubmatch(path)
	if m == nil {
		m = compactPathRe.FindStringSubmatch(path)
	}
	if m == nil {
		return time.Time{}, errors.New("no YYYY/MM/DD date in path")
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date in path: %v", err)
	}
	return t, nil
}

// splitIDToken takes the final path element and separates the document id
// token from the language suffix: "2023062800023_c.htm" -> ("2023062800023", "c").
func splitIDToken(path string) (token, lang string, err error) {
	base := path[strings.LastIndex(path, "/")+1:]
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	i := strings.LastIndex(base, "_")
	if i <= 0 || i == len(base)-1 {
		return "", "", errors.New("no language suffix marker")
	}
	return base[:i], base[i+1:], nil
}

func classifyToken(token string) (models.Epoch, error) {
	switch {
	case numericIDRe.MatchString(token):
		return models.EpochModern, nil
	case strings.HasPrefix(strings.ToUpper(token), legacyIDPrefix) && legacyIDRe.MatchString(token):
		return models.EpochLegacy, nil
	default:
		return 0, fmt.Errorf("unrecognized document id token %q", token)
	}
}
