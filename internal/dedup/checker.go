package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/question"
	"github.com/matsen/examdup/internal/reference"
	"github.com/matsen/examdup/internal/resolve"
)

// Checker runs the duplicate check for one document at a time.
type Checker struct {
	FS          afero.Fs
	Provider    embedding.Provider
	Store       reference.Store
	Threshold   float64
	Concurrency int // parallel embedding calls during extraction
}

// Check extracts the questions of the document at path, compares them with
// each other and with the reference store, and returns the results.
// A malformed document fails before any comparison work.
func (c *Checker) Check(ctx context.Context, path string) (*Report, error) {
	start := time.Now()

	doc, err := docx.Open(c.FS, path)
	if err != nil {
		return nil, err
	}
	qs, err := question.Extract(ctx, doc, c.Provider, c.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("extracting questions from %s: %w", path, err)
	}

	refs, err := c.Store.FetchPairs(ctx)
	if err != nil {
		return nil, err
	}

	verdicts, err := resolve.New(c.Provider, c.Threshold).Resolve(ctx, qs, refs)
	if err != nil {
		return nil, fmt.Errorf("resolving duplicates: %w", err)
	}

	report := &Report{
		RunID:      uuid.New(),
		Document:   path,
		Threshold:  c.Threshold,
		Model:      c.Provider.ModelName(),
		References: len(refs),
		CheckedAt:  start.UTC(),
		Summary:    summarize(len(qs), verdicts),
		Results:    make([]Result, len(verdicts)),
	}
	for i := range verdicts {
		report.Results[i] = NewResult(&verdicts[i])
	}
	report.DurationMs = time.Since(start).Milliseconds()

	attrs := []any{
		"run_id", report.RunID,
		"document", path,
		"questions", report.Summary.Questions,
		"duplicates", report.Summary.Duplicates,
		"duration_ms", report.DurationMs,
	}
	if cs, ok := c.Provider.(embedding.CacheStats); ok {
		hits, misses := cs.Stats()
		attrs = append(attrs, "embedding_cache_hits", hits, "embedding_cache_misses", misses)
	}
	slog.Info("checked document", attrs...)
	return report, nil
}
