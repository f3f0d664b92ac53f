// Package match finds sentences containing a literal query phrase.
package match

import (
	"strings"

	"github.com/dgallion1/pdfsift/internal/fault"
	"github.com/dgallion1/pdfsift/internal/segment"
)

// Result is the outcome of one query over one document.
// TotalMatches always equals len(SentenceIDs); a sentence contributes at
// most one entry no matter how often the query occurs inside it.
type Result struct {
	Query        string   `json:"search_query"`
	TotalMatches int      `json:"total_matches"`
	Sentences    []string `json:"matched_sentences"`
	SentenceIDs  []int    `json:"matched_sentence_ids"`
}

// Find scans sentences in document order for the query. The query is a
// literal phrase: both sides are lowercased and whitespace-collapsed,
// then matched by substring containment. An empty or whitespace-only
// query fails with fault.InvalidQuery before any scan.
func Find(sentences []segment.Sentence, query string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fault.Errorf(fault.InvalidQuery, "query is empty")
	}

	needle := Normalize(query)
	res := Result{
		Query:       strings.TrimSpace(query),
		Sentences:   []string{},
		SentenceIDs: []int{},
	}
	for _, s := range sentences {
		if strings.Contains(Normalize(s.Text), needle) {
			res.Sentences = append(res.Sentences, s.Text)
			res.SentenceIDs = append(res.SentenceIDs, s.ID)
		}
	}
	res.TotalMatches = len(res.SentenceIDs)
	return res, nil
}

// Normalize collapses runs of whitespace to single spaces and lowercases.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
