package splitter

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/textsplitter"
)

const lorem = "Lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor " +
	"incididunt ut labore et dolore magna aliqua Ut enim ad minim veniam quis nostrud " +
	"exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat Duis aute irure " +
	"dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur"

func newSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := New(textsplitter.WithChunkSize(size), textsplitter.WithChunkOverlap(overlap))
	require.NoError(t, err)
	return s
}

func assertOverlapInvariant(t *testing.T, text string, spans []Span, size, overlap int) {
	t.Helper()
	rs := []rune(text)
	for i, sp := range spans {
		assert.LessOrEqual(t, sp.End-sp.Start, size, "chunk %d exceeds size", i)
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		assert.Greater(t, sp.Start, prev.Start, "chunk %d does not advance", i)
		assert.GreaterOrEqual(t, prev.End-sp.Start, overlap, "chunk %d overlap too small", i)

		shared := string(rs[sp.Start:prev.End])
		assert.True(t, strings.HasSuffix(string(rs[prev.Start:prev.End]), shared))
		assert.True(t, strings.HasPrefix(string(rs[sp.Start:sp.End]), shared))
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"zero overlap", 100, 0},
		{"overlap equals size", 100, 100},
		{"overlap larger than size", 50, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(textsplitter.WithChunkSize(tt.size), textsplitter.WithChunkOverlap(tt.overlap))
			assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
		})
	}

	s, err := New()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, core.DefaultChunkOverlap, s.ChunkOverlap())
}

func TestSplit_OverlapOn250Characters(t *testing.T) {
	text := lorem[:250]
	require.Equal(t, 250, len(text))

	s := newSplitter(t, 100, 20)
	spans := s.Spans(text)
	require.GreaterOrEqual(t, len(spans), 3)
	assertOverlapInvariant(t, text, spans, 100, 20)

	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 250, spans[len(spans)-1].End, "last chunk reaches the end")
}

func TestSplit_Deterministic(t *testing.T) {
	s := newSplitter(t, 120, 30)
	a, err := s.SplitText(lorem)
	require.NoError(t, err)
	b, err := s.SplitText(lorem)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("a", 30) + " " + strings.Repeat("b", 29) // 60 runes
	para2 := strings.Repeat("c ", 40)
	text := para1 + "\n\n" + para2

	s := newSplitter(t, 100, 20)
	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, para1, chunks[0])
	assertOverlapInvariant(t, text, s.Spans(text), 100, 20)
}

func TestSplit_PrefersLineOverWord(t *testing.T) {
	line1 := "alpha beta gamma delta epsilon zeta eta theta iota kappa" // 56 runes
	text := line1 + "\n" + "lambda mu nu xi omicron pi rho sigma tau upsilon phi chi psi omega"

	s := newSplitter(t, 100, 20)
	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	assert.Equal(t, line1, chunks[0])
}

func TestSplit_HardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	s := newSplitter(t, 100, 20)
	spans := s.Spans(text)

	assert.Equal(t, []Span{{0, 100}, {80, 180}, {160, 250}}, spans)
	assertOverlapInvariant(t, text, spans, 100, 20)
}

func TestSplit_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 150)
	s := newSplitter(t, 100, 10)
	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
}

func TestSplit_ShortAndEmpty(t *testing.T) {
	s := newSplitter(t, 100, 20)

	chunks, err := s.SplitText("short text")
	require.NoError(t, err)
	assert.Equal(t, []string{"short text"}, chunks)

	chunks, err = s.SplitText("")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = s.SplitText(" \n\n\t ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_LongWhitespaceRunKeepsOverlap(t *testing.T) {
	text := "alpha beta gamma" + strings.Repeat(" ", 60) + "delta epsilon zeta eta theta"
	s := newSplitter(t, 20, 5)
	spans := s.Spans(text)

	require.NotEmpty(t, spans)
	assertOverlapInvariant(t, text, spans, 20, 5)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len([]rune(text)), spans[len(spans)-1].End)
}

func TestSplit_TrimsTrailingWhitespace(t *testing.T) {
	text := "alpha beta gamma delta" + strings.Repeat(" ", 40)
	s := newSplitter(t, 20, 5)
	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.NotEmpty(t, strings.TrimSpace(chunks[len(chunks)-1]))
}

func TestSplit_SnapsToWordStart(t *testing.T) {
	s := newSplitter(t, 100, 20)
	rs := []rune(lorem)
	spans := s.Spans(lorem)
	for _, sp := range spans[1:] {
		assert.NotEqual(t, ' ', rs[sp.Start])
		assert.Equal(t, ' ', rs[sp.Start-1], "chunk should begin at a word")
	}
}

func TestSplitDocuments(t *testing.T) {
	s := newSplitter(t, 100, 20)
	docs := []core.Document{
		{Text: lorem, Metadata: map[string]string{core.MetaSourceFileID: "f1", core.MetaPage: "1"}},
		{Text: "  ", Metadata: map[string]string{core.MetaSourceFileID: "f1", core.MetaPage: "2"}},
		{Text: "tiny", Metadata: map[string]string{core.MetaSourceFileID: "f1", core.MetaPage: "3"}},
	}

	chunks, err := s.SplitDocuments(docs)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "tiny", last.Text)
	assert.Equal(t, 0, last.Index, "index restarts per document")
	assert.Equal(t, 3, last.Page())

	for i, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, strconv.Itoa(i), c.Metadata[core.MetaChunkIndex])
		assert.Equal(t, strconv.Itoa(c.Start), c.Metadata[core.MetaStartIndex])
		assert.Equal(t, "f1", c.FileID())
		assert.Equal(t, string([]rune(lorem)[c.Start:c.End]), c.Text)
	}

	// Source metadata is copied, not shared.
	chunks[0].Metadata["extra"] = "x"
	_, leaked := docs[0].Metadata["extra"]
	assert.False(t, leaked)
}

func TestSplitter_WithLangchainHelpers(t *testing.T) {
	s := newSplitter(t, 100, 20)
	docs, err := textsplitter.CreateDocuments(s, []string{lorem}, nil)
	require.NoError(t, err)
	assert.Greater(t, len(docs), 1)
}
