package splitter

import (
	"log/slog"
	"strconv"
	"unicode"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter cuts text into bounded windows that overlap by at least
// ChunkOverlap runes. Break points are chosen from Separators in order of
// preference; the empty separator means a hard cut. Leading and trailing
// whitespace of a text never starts or ends a chunk.
type Splitter struct {
	size       int
	overlap    int
	separators [][]rune
	logger     *slog.Logger
}

var _ textsplitter.TextSplitter = (*Splitter)(nil)

// Span locates one chunk within its source text, in runes.
type Span struct {
	Start int
	End   int
}

// New creates a splitter. Size and overlap default to 1000 and 150 runes;
// separators default to paragraph, line, word and character.
func New(opts ...textsplitter.Option) (*Splitter, error) {
	o := textsplitter.DefaultOptions()
	o.ChunkSize = core.DefaultChunkSize
	o.ChunkOverlap = core.DefaultChunkOverlap
	for _, opt := range opts {
		opt(&o)
	}
	if err := core.ValidateChunkParams(o.ChunkSize, o.ChunkOverlap); err != nil {
		return nil, err
	}

	seps := make([][]rune, 0, len(o.Separators)+1)
	hasHardCut := false
	for _, sep := range o.Separators {
		if sep == "" {
			hasHardCut = true
		}
		seps = append(seps, []rune(sep))
	}
	if !hasHardCut {
		seps = append(seps, nil)
	}

	return &Splitter{
		size:       o.ChunkSize,
		overlap:    o.ChunkOverlap,
		separators: seps,
		logger:     slog.Default().With("component", "splitter"),
	}, nil
}

// ChunkSize returns the maximum chunk length in runes.
func (s *Splitter) ChunkSize() int { return s.size }

// ChunkOverlap returns the minimum overlap in runes.
func (s *Splitter) ChunkOverlap() int { return s.overlap }

// SplitText implements textsplitter.TextSplitter.
func (s *Splitter) SplitText(text string) ([]string, error) {
	rs := []rune(text)
	spans := s.spans(rs)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(rs[sp.Start:sp.End])
	}
	return out, nil
}

// Spans returns the rune ranges SplitText would produce.
func (s *Splitter) Spans(text string) []Span {
	return s.spans([]rune(text))
}

// SplitDocuments splits each document independently. Every chunk inherits its
// document's metadata plus chunk_index and start_index.
func (s *Splitter) SplitDocuments(docs []core.Document) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for _, doc := range docs {
		rs := []rune(doc.Text)
		for i, sp := range s.spans(rs) {
			meta := make(map[string]string, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta[core.MetaChunkIndex] = strconv.Itoa(i)
			meta[core.MetaStartIndex] = strconv.Itoa(sp.Start)

			chunks = append(chunks, core.Chunk{
				Text:     string(rs[sp.Start:sp.End]),
				Metadata: meta,
				Index:    i,
				Start:    sp.Start,
				End:      sp.End,
			})
		}
	}
	s.logger.Debug("split documents", "documents", len(docs), "chunks", len(chunks))
	return chunks, nil
}

func (s *Splitter) spans(rs []rune) []Span {
	n := len(rs)
	start := 0
	for start < n && unicode.IsSpace(rs[start]) {
		start++
	}
	if start == n {
		return nil
	}
	for unicode.IsSpace(rs[n-1]) {
		n--
	}

	var spans []Span
	for {
		if n-start <= s.size {
			return append(spans, Span{Start: start, End: n})
		}

		// Whitespace-only windows inside the text are kept so neighbours
		// still overlap.
		end := s.breakPoint(rs, start)
		spans = append(spans, Span{Start: start, End: end})

		start = snapToWordStart(rs, start, end-s.overlap, s.overlap)
	}
}

// breakPoint picks where the chunk starting at start ends. The end lies past
// both the overlap and half the window, so the following chunk always moves
// forward and chunks are never trivially short.
func (s *Splitter) breakPoint(rs []rune, start int) int {
	lo := start + max(s.overlap, s.size/2) + 1
	hi := start + s.size
	for _, sep := range s.separators {
		if len(sep) == 0 {
			return hi
		}
		for p := hi; p >= lo; p-- {
			if hasPrefixAt(rs, p, sep) {
				return p
			}
		}
	}
	return hi
}

// snapToWordStart moves pos back to the start of the word it falls in,
// looking at most maxBack runes back and never reaching floor. Moving back
// only increases the overlap.
func snapToWordStart(rs []rune, floor, pos, maxBack int) int {
	limit := max(floor+1, pos-maxBack)
	for i := pos; i >= limit; i-- {
		if !unicode.IsSpace(rs[i]) && unicode.IsSpace(rs[i-1]) {
			return i
		}
	}
	return pos
}

func hasPrefixAt(rs []rune, pos int, sep []rune) bool {
	if pos+len(sep) > len(rs) {
		return false
	}
	for i, r := range sep {
		if rs[pos+i] != r {
			return false
		}
	}
	return true
}
