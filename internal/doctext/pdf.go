package doctext

import (
	"context"
	"strings"

	"github.com/dgallion1/pdfsift/internal/pdftext"
)

// PDFLoader handles PDF files via the positional extractor's plain-text
// path, with an optional pdftotext subprocess fallback.
type PDFLoader struct {
	FallbackPdftotext bool
}

func (l *PDFLoader) Load(ctx context.Context, data []byte) (string, error) {
	text, err := pdftext.PlainText(ctx, data, l.FallbackPdftotext)
	if err != nil {
		return "", err
	}
	// Page separators are noise for the summarizer.
	return strings.ReplaceAll(text, "\f", "\n\n"), nil
}
