// Package common holds small helpers shared by the CLI commands.
package common

import (
	"fmt"
	"regexp"
	"strings"
)

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste
// issues: surrounding whitespace, markdown link syntax, stray punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	markdownLink := regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)
	if m := markdownLink.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	for _, char := range []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"} {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	for _, char := range []string{"(", "[", "<", "\"", "'"} {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// filenameRe matches characters that are unsafe in chapter filenames.
var filenameRe = regexp.MustCompile(`[/\\:*?"<>|\r\n\t]+`)

// SanitizeFilename makes a company name or chapter title safe for the
// filesystem and caps its length so the full chapter filename stays well
// under common path limits.
func SanitizeFilename(name string) string {
	s := filenameRe.ReplaceAllString(name, "_")
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > 100 {
		s = string(runes[:100])
	}
	return strings.TrimSpace(s)
}

// FormatFileSize renders a byte count for the summary report.
func FormatFileSize(size int64) string {
	if size == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	value := float64(size)
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", size, units[idx])
	}
	return fmt.Sprintf("%.1f %s", value, units[idx])
}
