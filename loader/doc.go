// Package loader turns files into normalized documents.
//
// A Registry maps file extensions to loader factories. Format selection is a
// plain lookup: an unregistered extension fails with core.ErrUnsupportedFormat
// before the file is read. Every document carries source_path, source_file_id
// (the BLAKE2b fingerprint of the file bytes) and source_name metadata, plus a
// page number for paged formats.
//
// Built-in formats: .txt, .md, .pdf, .docx, .html, .htm and .csv. Legacy .doc
// files are not supported.
package loader
