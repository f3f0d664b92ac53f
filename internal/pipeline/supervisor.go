// Package pipeline supervises per-request document processing.
//
// The Supervisor executes one WorkUnit synchronously under a hard
// deadline and guarantees exactly one outcome: a typed result or a
// typed fault, never both, never neither. Concurrent units are fully
// independent; the only shared structure is the slot semaphore.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/pdfsift/internal/artifacts"
	"github.com/dgallion1/pdfsift/internal/config"
	"github.com/dgallion1/pdfsift/internal/doctext"
	"github.com/dgallion1/pdfsift/internal/fault"
	"github.com/dgallion1/pdfsift/internal/highlight"
	"github.com/dgallion1/pdfsift/internal/match"
	"github.com/dgallion1/pdfsift/internal/pdftext"
	"github.com/dgallion1/pdfsift/internal/segment"
	"github.com/dgallion1/pdfsift/internal/summarize"
)

// SearchResult is the search operation's payload.
type SearchResult struct {
	Query            string   `json:"search_query"`
	TotalMatches     int      `json:"total_matches"`
	MatchedSentences []string `json:"matched_sentences"`
	HighlightedPDF   string   `json:"highlighted_pdf"`
}

// Result holds exactly one operation payload.
type Result struct {
	Search  *SearchResult
	Summary *summarize.Result
}

// Supervisor runs WorkUnits with bounded concurrency.
type Supervisor struct {
	gemini *summarize.Client
	store  *artifacts.Store
	seg    *segment.Segmenter
	log    *slog.Logger
	cfg    config.Config
	slots  chan struct{}
}

func NewSupervisor(cfg config.Config, gemini *summarize.Client, store *artifacts.Store, log *slog.Logger) *Supervisor {
	return &Supervisor{
		gemini: gemini,
		store:  store,
		seg:    segment.New(cfg.ExtraAbbreviations...),
		log:    log,
		cfg:    cfg,
		slots:  make(chan struct{}, cfg.MaxConcurrentWork),
	}
}

// Execute runs one unit to a terminal state. The returned error, if any,
// is always a *fault.Error; a deadline exceeded anywhere in the pipeline
// yields fault.Timeout and no partial result.
func (s *Supervisor) Execute(ctx context.Context, unit *Unit) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WorkTimeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	unit.Deadline = deadline
	defer unit.release()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		unit.setStatus(StatusTimedOut)
		return nil, fault.New(fault.Timeout, ctx.Err())
	}

	unit.setStatus(StatusRunning)
	res, err := s.run(ctx, unit)
	if err != nil {
		ferr := asFault(err)
		if ferr.Kind == fault.Timeout {
			unit.setStatus(StatusTimedOut)
		} else {
			unit.setStatus(StatusFailed)
		}
		s.log.Error("work unit failed",
			"unit_id", unit.ID,
			"operation", unit.Operation,
			"kind", ferr.Kind,
			"error", ferr.Err,
		)
		return nil, ferr
	}

	unit.setStatus(StatusSucceeded)
	return res, nil
}

// run executes the pipeline for the unit's operation. Panics in any
// stage are recovered here so the unit always reaches a terminal state.
func (s *Supervisor) run(ctx context.Context, unit *Unit) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fault.Errorf(fault.Internal, "pipeline panic: %v", r)
		}
	}()

	switch unit.Operation {
	case OpSearch:
		return s.search(ctx, unit)
	case OpSummarize:
		return s.summarize(ctx, unit)
	default:
		return nil, fault.Errorf(fault.Internal, "unknown operation %q", unit.Operation)
	}
}

// search runs extraction, segmentation, matching and annotation in
// strict order, checking the deadline between stages.
func (s *Supervisor) search(ctx context.Context, unit *Unit) (*Result, error) {
	if strings.TrimSpace(unit.Query) == "" {
		return nil, fault.Errorf(fault.InvalidQuery, "query is empty")
	}

	units, err := pdftext.Extract(unit.Data())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fault.New(fault.Timeout, err)
	}

	sentences := s.seg.Document(units)

	matches, err := match.Find(sentences, unit.Query)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fault.New(fault.Timeout, err)
	}

	annotated, err := highlight.Apply(unit.Data(), sentences, matches.SentenceIDs)
	if err != nil {
		return nil, err
	}

	url, err := s.store.Put(unit.ID, "highlighted.pdf", annotated)
	if err != nil {
		return nil, fault.Errorf(fault.Internal, "store artifact: %w", err)
	}

	return &Result{Search: &SearchResult{
		Query:            matches.Query,
		TotalMatches:     matches.TotalMatches,
		MatchedSentences: matches.Sentences,
		HighlightedPDF:   url,
	}}, nil
}

// summarize loads the document's text and calls the external model,
// retrying once on transient failure.
func (s *Supervisor) summarize(ctx context.Context, unit *Unit) (*Result, error) {
	loader, err := doctext.ForFile(unit.Filename, doctext.Options{
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		return nil, fault.New(fault.Internal, err)
	}

	text, err := loader.Load(ctx, unit.Data())
	if err != nil {
		return nil, asFault(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fault.New(fault.Timeout, err)
	}

	var summary string
	for attempt := range MaxAttempts {
		summary, err = s.gemini.Summarize(ctx, text)
		if err == nil || !IsRetryable(err) {
			break
		}
		s.log.Warn("retryable summarize error", "unit_id", unit.ID, "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, fault.New(fault.Timeout, ctx.Err())
		}
	}
	if err != nil {
		if IsRetryable(err) {
			return nil, fault.New(fault.SummarizeUnavailable, err)
		}
		return nil, asFault(err)
	}

	return &Result{Summary: &summarize.Result{Summary: summary}}, nil
}

// asFault normalizes any stage error into a single typed fault.
func asFault(err error) *fault.Error {
	var ferr *fault.Error
	if errors.As(err, &ferr) {
		return ferr
	}
	return fault.New(fault.KindOf(err), err)
}
