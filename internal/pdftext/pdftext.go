// Package pdftext extracts positioned text from PDF documents.
//
// Extraction produces word-level units carrying page number and bounding
// box in PDF user space (origin bottom-left), ordered top-to-bottom and
// left-to-right within each page. The same coordinate space is consumed
// unchanged by the highlight annotator.
package pdftext

import (
	"bytes"
	"errors"
	"sort"
	"strings"

	"github.com/dgallion1/pdfsift/internal/fault"
	pdflib "github.com/ledongthuc/pdf"
)

// BBox is an axis-aligned rectangle in PDF user space.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Union returns the smallest box covering b and o.
func (b BBox) Union(o BBox) BBox {
	if o.X0 < b.X0 {
		b.X0 = o.X0
	}
	if o.Y0 < b.Y0 {
		b.Y0 = o.Y0
	}
	if o.X1 > b.X1 {
		b.X1 = o.X1
	}
	if o.Y1 > b.Y1 {
		b.Y1 = o.Y1
	}
	return b
}

// Unit is one extracted word with its page and bounding box.
// Page is 0-indexed. Units are immutable once extracted.
type Unit struct {
	Page int
	Text string
	BBox BBox
}

// Rows closer than this many points share a baseline.
const rowTolerance = 5.0

// Extract parses PDF bytes into positioned text units in reading order.
// Glyph runs that cannot be decoded are dropped; a PDF with no extractable
// text yields an empty slice, not an error.
func Extract(data []byte) (units []Unit, err error) {
	// The underlying reader panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fault.Errorf(fault.UnreadablePDF, "pdf reader panic: %v", r)
		}
	}()

	reader, err := newReader(data)
	if err != nil {
		return nil, err
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		units = append(units, pageUnits(page, pageNum-1)...)
	}
	return units, nil
}

func newReader(data []byte) (*pdflib.Reader, error) {
	if len(data) == 0 {
		return nil, fault.Errorf(fault.UnreadablePDF, "empty input")
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdflib.ErrInvalidPassword) ||
			strings.Contains(strings.ToLower(err.Error()), "encrypted") {
			return nil, fault.New(fault.EncryptedPDF, err)
		}
		return nil, fault.Errorf(fault.UnreadablePDF, "open pdf: %w", err)
	}
	return reader, nil
}

// pageUnits groups the page's glyph runs into word units.
func pageUnits(page pdflib.Page, pageIdx int) []Unit {
	var chars []pdflib.Text
	func() {
		// Content() can panic on broken content streams; drop the page.
		defer func() { recover() }()
		chars = page.Content().Text
	}()
	if len(chars) == 0 {
		return nil
	}

	var units []Unit
	for _, row := range groupRows(chars) {
		units = append(units, rowUnits(row, pageIdx)...)
	}
	return units
}

// groupRows clusters glyphs by baseline, ordered top of page first.
func groupRows(chars []pdflib.Text) [][]pdflib.Text {
	sorted := make([]pdflib.Text, len(chars))
	copy(sorted, chars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]pdflib.Text
	for _, c := range sorted {
		if n := len(rows); n > 0 {
			last := rows[n-1]
			if last[0].Y-c.Y <= rowTolerance {
				rows[n-1] = append(last, c)
				continue
			}
		}
		rows = append(rows, []pdflib.Text{c})
	}
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].X < row[j].X
		})
	}
	return rows
}

// rowUnits splits one baseline row into whitespace-delimited words.
func rowUnits(row []pdflib.Text, pageIdx int) []Unit {
	var (
		units []Unit
		text  strings.Builder
		box   BBox
		prev  *pdflib.Text
	)

	flush := func() {
		t := strings.TrimSpace(text.String())
		if t != "" {
			units = append(units, Unit{Page: pageIdx, Text: t, BBox: box})
		}
		text.Reset()
		prev = nil
	}

	for i := range row {
		c := row[i]
		if strings.TrimSpace(c.S) == "" {
			flush()
			continue
		}
		if prev != nil && c.X-(prev.X+prev.W) > wordGap(c.FontSize) {
			flush()
		}
		cb := glyphBox(c)
		if prev == nil {
			box = cb
		} else {
			box = box.Union(cb)
		}
		text.WriteString(c.S)
		prev = &row[i]
	}
	flush()
	return units
}

func glyphBox(c pdflib.Text) BBox {
	h := c.FontSize
	if h <= 0 {
		h = 12
	}
	return BBox{X0: c.X, Y0: c.Y, X1: c.X + c.W, Y1: c.Y + h}
}

func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 12
	}
	g := fontSize * 0.25
	if g < 1 {
		g = 1
	}
	return g
}

// PageCount reports the number of pages without extracting content.
func PageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Errorf(fault.UnreadablePDF, "pdf reader panic: %v", r)
		}
	}()
	reader, err := newReader(data)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// FullText concatenates unit texts in document order: words joined by
// single spaces, pages separated by form feeds.
func FullText(units []Unit) string {
	var buf strings.Builder
	lastPage := -1
	for _, u := range units {
		switch {
		case buf.Len() == 0:
		case u.Page != lastPage:
			buf.WriteString("\f")
		default:
			buf.WriteString(" ")
		}
		buf.WriteString(u.Text)
		lastPage = u.Page
	}
	return buf.String()
}
