// Package doctext converts uploaded documents into plain text for
// summarization. Search and highlighting are PDF-only; summarization
// needs nothing but prose, so it accepts the wider format set.
package doctext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Loader converts raw document bytes into plain text.
type Loader interface {
	Load(ctx context.Context, data []byte) (string, error)
}

// Options tune individual loaders.
type Options struct {
	// PDFFallbackPdftotext enables the pdftotext subprocess fallback
	// when the in-process PDF extractor yields nothing.
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions the summarize path accepts.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".docx": true,
}

// ForFile returns the loader for a filename.
func ForFile(filename string, opts Options) (Loader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".txt":
		return &TextLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".csv":
		return &CSVLoader{}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}
