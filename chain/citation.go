package chain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/docchat/core"
)

// SourcesMarker introduces the citation block of an answer.
const SourcesMarker = "Sources:"

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// FormatSources rewrites a flat "Sources: [1] A [2] B" run into one bullet
// per citation:
//
//	Sources:
//	- [1] A
//	- [2] B
//
// The text is split at the first marker and the run is cut right before each
// [n]. Text without the marker, or with fewer than two entries, is returned
// unchanged.
func FormatSources(text string) string {
	head, tail, found := strings.Cut(text, SourcesMarker)
	if !found {
		return text
	}
	tail = strings.TrimSpace(tail)

	var parts []string
	prev := 0
	for _, loc := range citationPattern.FindAllStringIndex(tail, -1) {
		parts = appendPart(parts, tail[prev:loc[0]])
		prev = loc[0]
	}
	parts = appendPart(parts, tail[prev:])

	if len(parts) <= 1 {
		return text
	}

	var b strings.Builder
	b.WriteString(strings.TrimRightFunc(head, unicode.IsSpace))
	b.WriteString("\n\n")
	b.WriteString(SourcesMarker)
	for _, part := range parts {
		b.WriteString("\n- ")
		b.WriteString(part)
	}
	return b.String()
}

func appendPart(parts []string, part string) []string {
	part = strings.TrimSpace(part)
	if part == "" {
		return parts
	}
	return append(parts, part)
}

// citedNumbers returns the distinct [n] markers in text that fall in
// [1, limit], ascending.
func citedNumbers(text string, limit int) []int {
	var cited []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > limit {
			continue
		}
		if !slices.Contains(cited, n) {
			cited = append(cited, n)
		}
	}
	slices.Sort(cited)
	return cited
}

// sourceLabel names a chunk the way it is listed under Sources.
func sourceLabel(chunk *core.Chunk) string {
	name := chunk.SourceName()
	if name == "" {
		name = chunk.Metadata[core.MetaSourcePath]
	}
	if name == "" {
		name = "unknown source"
	}
	if page := chunk.Page(); page > 0 {
		return fmt.Sprintf("%s (p. %d)", name, page)
	}
	return name
}

// sourcesRun renders the flat citation run for the given passage numbers.
func sourcesRun(chunks []core.Chunk, numbers []int) string {
	var b strings.Builder
	b.WriteString(SourcesMarker)
	for _, n := range numbers {
		fmt.Fprintf(&b, " [%d] %s", n, sourceLabel(&chunks[n-1]))
	}
	return b.String()
}
