package chain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sourcesFilter passes model increments through until the model starts its
// own "Sources:" block, which is withheld so the chain can emit a canonical
// one. Trailing whitespace and any suffix that could begin the marker are
// held back until the following increment disambiguates them.
type sourcesFilter struct {
	emit       func(string) bool
	pending    string
	body       strings.Builder
	sources    strings.Builder
	suppressed bool
}

func newSourcesFilter(emit func(string) bool) *sourcesFilter {
	return &sourcesFilter{emit: emit}
}

// write accepts one increment. It returns false once the consumer has
// stopped reading.
func (f *sourcesFilter) write(increment string) bool {
	if f.suppressed {
		f.sources.WriteString(increment)
		return true
	}

	f.pending += increment
	if i := strings.Index(f.pending, SourcesMarker); i >= 0 {
		f.sources.WriteString(f.pending[i+len(SourcesMarker):])
		out := strings.TrimRightFunc(f.pending[:i], unicode.IsSpace)
		f.pending = ""
		f.suppressed = true
		return f.release(out)
	}

	keep := heldSuffix(f.pending)
	out := f.pending[:len(f.pending)-keep]
	f.pending = f.pending[len(f.pending)-keep:]
	return f.release(out)
}

// finish releases what is still held, minus trailing whitespace, and returns
// the full body that was emitted.
func (f *sourcesFilter) finish() string {
	if !f.suppressed {
		f.release(strings.TrimRightFunc(f.pending, unicode.IsSpace))
	}
	f.pending = ""
	return f.body.String()
}

// modelSources returns the text the model wrote after its marker.
func (f *sourcesFilter) modelSources() string {
	return f.sources.String()
}

func (f *sourcesFilter) release(s string) bool {
	if s == "" {
		return true
	}
	f.body.WriteString(s)
	return f.emit(s)
}

// heldSuffix returns how many trailing bytes of s must wait for more input:
// a partial marker plus the whitespace before it.
func heldSuffix(s string) int {
	start := len(s)
	for n := min(len(s), len(SourcesMarker)-1); n > 0; n-- {
		if strings.HasPrefix(SourcesMarker, s[len(s)-n:]) {
			start = len(s) - n
			break
		}
	}
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !unicode.IsSpace(r) {
			break
		}
		start -= size
	}
	return len(s) - start
}
