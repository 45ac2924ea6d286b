// Package ingest implements the document ingestion pipeline: fetch,
// extract, clean, parent/child split, embed, and persist.
package ingest

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
	tripleNewlinePlus  = regexp.MustCompile(`\n{3,}`)
	intraLineSpaceRuns = regexp.MustCompile(`[^\S\n]{2,}`)
	newlineSpacingRuns = regexp.MustCompile(`[^\S\n]*\n[^\S\n]*`)
)

// Clean normalizes raw extracted text before it is split into parent
// and child units: strips markup, collapses excess whitespace, and
// removes bytes that downstream stores reject outright.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = newlineSpacingRuns.ReplaceAllString(text, "\n")
	text = tripleNewlinePlus.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = intraLineSpaceRuns.ReplaceAllString(line, " ")
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
