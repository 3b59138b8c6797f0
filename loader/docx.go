package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// ErrNoDocumentBody indicates a .docx archive without word/document.xml.
var ErrNoDocumentBody = errors.New("docx: missing word/document.xml")

const docxBodyPath = "word/document.xml"

// DOCX extracts paragraph text from an Office Open XML document.
// Formatting, tables and embedded objects are flattened to plain text.
type DOCX struct {
	data []byte
}

var _ documentloaders.Loader = DOCX{}

// NewDOCX creates a loader over the bytes of a .docx file.
func NewDOCX(data []byte) DOCX {
	return DOCX{data: data}
}

// Load returns the whole body as one document.
func (d DOCX) Load(_ context.Context) ([]schema.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(d.data), int64(len(d.data)))
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != docxBodyPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: %w", err)
		}
		defer rc.Close()

		text, err := extractParagraphs(rc)
		if err != nil {
			return nil, err
		}
		return []schema.Document{{PageContent: text, Metadata: map[string]any{}}}, nil
	}
	return nil, ErrNoDocumentBody
}

// LoadAndSplit loads the document and splits it with the given splitter.
func (d DOCX) LoadAndSplit(ctx context.Context, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	docs, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}
	return textsplitter.SplitDocuments(splitter, docs)
}

// extractParagraphs walks the WordprocessingML token stream. Paragraphs are
// separated by blank lines so the splitter can prefer them as boundaries.
func extractParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out      strings.Builder
		para     strings.Builder
		inText   bool
		wroteAny bool
	)

	flush := func() {
		p := strings.TrimSpace(para.String())
		para.Reset()
		if p == "" {
			return
		}
		if wroteAny {
			out.WriteString("\n\n")
		}
		out.WriteString(p)
		wroteAny = true
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flush()
	return out.String(), nil
}
