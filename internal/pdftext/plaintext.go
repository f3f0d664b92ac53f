package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/pdfsift/internal/fault"
)

// PlainText extracts the document's plain text, page texts separated by
// form feeds. Used by the summarize path, where positions do not matter.
// When the reader's text stream yields nothing, positional extraction is
// tried next; with fallbackPdftotext set, pdftotext runs last as a
// subprocess under ctx so a deadline kills it.
func PlainText(ctx context.Context, data []byte, fallbackPdftotext bool) (string, error) {
	text, err := plainText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if fault.Is(err, fault.EncryptedPDF) {
		return "", err
	}
	if units, posErr := Extract(data); posErr == nil {
		if full := FullText(units); strings.TrimSpace(full) != "" {
			return full, nil
		}
	}
	if fallbackPdftotext {
		if out, fbErr := pdftotext(ctx, data); fbErr == nil {
			return out, nil
		}
	}
	return text, err
}

func plainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fault.Errorf(fault.UnreadablePDF, "pdf reader panic: %v", r)
		}
	}()

	reader, err := newReader(data)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\f")
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

// pdftotext shells out to poppler's pdftotext. Stdout carries the payload;
// stderr is diagnostics only and is never mixed into the result.
func pdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "pdfsift-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
