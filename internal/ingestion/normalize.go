package ingestion

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanCell trims a CSV cell and collapses internal runs of whitespace (including newlines
// from quoted multi-line cells) to a single space.
func cleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	return whitespaceRun.ReplaceAllString(cell, " ")
}

// normalizeHeader maps a header cell to its lookup key: BOM stripped, trimmed, lower-cased.
func normalizeHeader(cell string) string {
	cell = strings.TrimPrefix(cell, "\ufeff")
	return strings.ToLower(cleanCell(cell))
}
