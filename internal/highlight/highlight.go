// Package highlight re-annotates a PDF with translucent highlight
// rectangles over matched sentences.
//
// Annotation is purely additive: existing page content streams are never
// rewritten, and the caller's source bytes are never mutated. An empty
// match set returns the source bytes unchanged.
package highlight

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/pdfsift/internal/fault"
	"github.com/dgallion1/pdfsift/internal/pdftext"
	"github.com/dgallion1/pdfsift/internal/segment"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Highlight style: yellow fill at 40% opacity, printable, no stroke.
var highlightColor = [3]float64{1, 1, 0}

const highlightOpacity = 0.4

// Apply draws one highlight annotation per bounding box of every matched
// sentence and returns the new document bytes. ids index into sentences
// by Sentence.ID.
func Apply(src []byte, sentences []segment.Sentence, ids []int) ([]byte, error) {
	if len(ids) == 0 {
		return src, nil
	}

	byPage, err := collectBoxes(sentences, ids)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(src), model.NewDefaultConfiguration())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") ||
			strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, fault.New(fault.EncryptedPDF, err)
		}
		return nil, fault.Errorf(fault.AnnotationFailed, "read pdf: %w", err)
	}

	for pageNr, boxes := range byPage {
		if pageNr < 1 || pageNr > ctx.PageCount {
			continue
		}
		if err := annotatePage(ctx, pageNr, boxes); err != nil {
			return nil, fault.Errorf(fault.AnnotationFailed, "page %d: %w", pageNr, err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fault.Errorf(fault.AnnotationFailed, "write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// collectBoxes maps 1-indexed page numbers to the boxes to draw there.
func collectBoxes(sentences []segment.Sentence, ids []int) (map[int][]pdftext.BBox, error) {
	byID := make(map[int]*segment.Sentence, len(sentences))
	for i := range sentences {
		byID[sentences[i].ID] = &sentences[i]
	}

	byPage := make(map[int][]pdftext.BBox)
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fault.Errorf(fault.AnnotationFailed, "unknown sentence id %d", id)
		}
		byPage[s.Page+1] = append(byPage[s.Page+1], s.Boxes...)
	}
	return byPage, nil
}

func annotatePage(ctx *model.Context, pageNr int, boxes []pdftext.BBox) error {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return fmt.Errorf("page dict: %w", err)
	}
	if pageDict == nil {
		return fmt.Errorf("missing page dict")
	}

	var refs types.Array
	for _, box := range boxes {
		d := highlightDict(box)
		ir, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return fmt.Errorf("new annotation object: %w", err)
		}
		refs = append(refs, *ir)
	}

	obj, found := pageDict.Find("Annots")
	if !found {
		pageDict.Insert("Annots", refs)
		return nil
	}
	annots, err := ctx.DereferenceArray(obj)
	if err != nil {
		return fmt.Errorf("dereference Annots: %w", err)
	}
	pageDict.Update("Annots", append(annots, refs...))
	return nil
}

// highlightDict builds a Highlight annotation covering box.
// QuadPoints order per the PDF spec: upper-left, upper-right,
// lower-left, lower-right.
func highlightDict(b pdftext.BBox) types.Dict {
	return types.Dict(map[string]types.Object{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Highlight"),
		"Rect":    types.NewNumberArray(b.X0, b.Y0, b.X1, b.Y1),
		"QuadPoints": types.NewNumberArray(
			b.X0, b.Y1,
			b.X1, b.Y1,
			b.X0, b.Y0,
			b.X1, b.Y0,
		),
		"C":  types.NewNumberArray(highlightColor[0], highlightColor[1], highlightColor[2]),
		"CA": types.Float(highlightOpacity),
		"F":  types.Integer(4), // print flag
	})
}
