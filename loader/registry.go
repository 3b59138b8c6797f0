package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Factory builds a loader over the raw bytes of one file.
type Factory func(data []byte) documentloaders.Loader

// Registry maps lower-cased file extensions to loader factories.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    slog.Default().With("component", "loader"),
	}
}

// DefaultRegistry returns a registry with every built-in format registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".txt", TextFactory)
	r.Register(".md", TextFactory)
	r.Register(".pdf", PDFFactory)
	r.Register(".docx", DOCXFactory)
	r.Register(".html", HTMLFactory)
	r.Register(".htm", HTMLFactory)
	r.Register(".csv", CSVFactory)
	return r
}

// TextFactory loads plain text and markdown as a single document.
func TextFactory(data []byte) documentloaders.Loader {
	return documentloaders.NewText(bytes.NewReader(data))
}

// PDFFactory loads one document per page.
func PDFFactory(data []byte) documentloaders.Loader {
	return documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
}

// HTMLFactory loads the visible text of an HTML page.
func HTMLFactory(data []byte) documentloaders.Loader {
	return documentloaders.NewHTML(bytes.NewReader(data))
}

// CSVFactory loads one document per row.
func CSVFactory(data []byte) documentloaders.Loader {
	return documentloaders.NewCSV(bytes.NewReader(data))
}

// DOCXFactory loads the body text of a word-processor document.
func DOCXFactory(data []byte) documentloaders.Loader {
	return NewDOCX(data)
}

// Register binds an extension to a factory, replacing any previous binding.
func (r *Registry) Register(ext string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeExt(ext)] = f
}

// Unregister removes an extension.
func (r *Registry) Unregister(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, normalizeExt(ext))
}

// Supports reports whether a loader exists for the path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.factory(path)
	return ok
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func (r *Registry) factory(path string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[normalizeExt(filepath.Ext(path))]
	return f, ok
}

// Load reads every path in order. Any failure aborts the whole batch.
func (r *Registry) Load(ctx context.Context, paths []string, extra map[string]string) ([]core.Document, error) {
	var docs []core.Document
	for _, path := range paths {
		loaded, err := r.LoadFile(ctx, path, extra)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// LoadFile reads a single file into documents tagged with provenance
// metadata. Extra metadata is merged first so provenance keys always win.
func (r *Registry) LoadFile(ctx context.Context, path string, extra map[string]string) ([]core.Document, error) {
	f, ok := r.factory(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw, err := f(data).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	fingerprint := core.FingerprintBytes(data)
	docs := make([]core.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, toDocument(d, path, fingerprint, extra))
	}

	r.logger.Debug("loaded file", "path", path, "documents", len(docs), "file_id", fingerprint)
	return docs, nil
}

func toDocument(d schema.Document, path, fingerprint string, extra map[string]string) core.Document {
	meta := make(map[string]string, len(extra)+len(d.Metadata)+3)
	for k, v := range extra {
		meta[k] = v
	}
	for k, v := range d.Metadata {
		meta[k] = fmt.Sprint(v)
	}
	// Row-per-document loaders use the row as their unit number.
	if row, ok := d.Metadata["row"]; ok {
		if _, hasPage := d.Metadata[core.MetaPage]; !hasPage {
			meta[core.MetaPage] = fmt.Sprint(row)
		}
	}
	meta[core.MetaSourcePath] = path
	meta[core.MetaSourceFileID] = fingerprint
	meta[core.MetaSourceName] = filepath.Base(path)

	return core.Document{Text: d.PageContent, Metadata: meta}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
