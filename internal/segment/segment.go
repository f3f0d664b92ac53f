// Package segment groups positioned text units into sentences.
//
// A sentence never spans pages. The boundary rule favors over-splitting:
// a unit ending in '.', '?' or '!' ends the sentence unless its final
// token is a known abbreviation; anything ambiguous ends the sentence.
package segment

import (
	"strings"

	"github.com/dgallion1/pdfsift/internal/pdftext"
)

// Sentence is the unit of matching and highlighting.
// Text is trimmed and whitespace-collapsed; Boxes holds one bounding box
// per contributing unit, in unit order, and is never empty.
type Sentence struct {
	ID    int
	Page  int
	Text  string
	Boxes []pdftext.BBox
}

// defaultAbbreviations are terminator-bearing tokens that do not end a
// sentence. Compared lowercase.
var defaultAbbreviations = []string{
	"fig.", "figs.", "eq.", "eqs.", "sec.", "ch.", "no.", "vol.", "pp.", "p.",
	"e.g.", "i.e.", "cf.", "al.", "etc.", "vs.", "approx.",
	"dr.", "mr.", "mrs.", "ms.", "prof.", "st.", "jr.", "sr.",
	"inc.", "ltd.", "co.", "corp.",
	"jan.", "feb.", "mar.", "apr.", "jun.", "jul.", "aug.", "sep.", "sept.",
	"oct.", "nov.", "dec.",
}

// Segmenter splits unit sequences into sentences.
type Segmenter struct {
	abbrevs map[string]bool
}

// New builds a Segmenter with the default abbreviation list plus extras.
func New(extra ...string) *Segmenter {
	s := &Segmenter{abbrevs: make(map[string]bool, len(defaultAbbreviations)+len(extra))}
	for _, a := range defaultAbbreviations {
		s.abbrevs[strings.ToLower(a)] = true
	}
	for _, a := range extra {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			s.abbrevs[a] = true
		}
	}
	return s
}

// Document segments a whole document's units, assigning sentence IDs in
// document order. Units must already be in reading order.
func (s *Segmenter) Document(units []pdftext.Unit) []Sentence {
	var sentences []Sentence
	for _, pageUnits := range splitPages(units) {
		for _, sent := range s.Page(pageUnits) {
			sent.ID = len(sentences)
			sentences = append(sentences, sent)
		}
	}
	return sentences
}

// Page segments one page's units. Whitespace-only candidates are dropped.
func (s *Segmenter) Page(units []pdftext.Unit) []Sentence {
	var (
		sentences []Sentence
		words     []string
		boxes     []pdftext.BBox
	)
	if len(units) == 0 {
		return nil
	}
	page := units[0].Page

	flush := func() {
		text := strings.TrimSpace(strings.Join(words, " "))
		if text != "" {
			sentences = append(sentences, Sentence{Page: page, Text: text, Boxes: boxes})
		}
		words = nil
		boxes = nil
	}

	for _, u := range units {
		text := collapse(u.Text)
		if text == "" {
			continue
		}
		words = append(words, text)
		boxes = append(boxes, u.BBox)
		if s.endsSentence(text) {
			flush()
		}
	}
	flush() // end-of-page terminates the open sentence

	return sentences
}

// endsSentence reports whether a unit's text closes the current sentence.
func (s *Segmenter) endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, `"')]`)
	if trimmed == "" {
		trimmed = text
	}
	last := trimmed[len(trimmed)-1]
	if last != '.' && last != '?' && last != '!' {
		return false
	}
	return !s.abbrevs[strings.ToLower(strings.TrimLeft(trimmed, `"'([`))]
}

func splitPages(units []pdftext.Unit) [][]pdftext.Unit {
	var pages [][]pdftext.Unit
	start := 0
	for i := 1; i <= len(units); i++ {
		if i == len(units) || units[i].Page != units[start].Page {
			pages = append(pages, units[start:i])
			start = i
		}
	}
	return pages
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
