package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/question"
	"github.com/matsen/examdup/internal/reference"
)

// ProgressReporter receives progress updates during an import.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// ImportStats contains statistics from an import.
type ImportStats struct {
	Document   string        `json:"document"`
	PairsAdded int           `json:"pairs_added"`
	StoreTotal int           `json:"store_total"`
	Model      string        `json:"model"`
	Duration   time.Duration `json:"duration"`
}

// DefaultBatchSize is the number of questions embedded per request.
const DefaultBatchSize = 16

// Importer adds the questions of a document to a reference store.
type Importer struct {
	fs        afero.Fs
	provider  embedding.Provider
	store     reference.Writer
	progress  ProgressReporter
	batchSize int
}

// NewImporter creates a new importer.
func NewImporter(fsys afero.Fs, provider embedding.Provider, store reference.Writer) *Importer {
	return &Importer{fs: fsys, provider: provider, store: store, batchSize: DefaultBatchSize}
}

// SetBatchSize sets how many questions share one embedding request.
func (im *Importer) SetBatchSize(n int) {
	if n > 0 {
		im.batchSize = n
	}
}

// SetProgressReporter sets the progress reporter for the importer.
func (im *Importer) SetProgressReporter(reporter ProgressReporter) {
	im.progress = reporter
}

// Import embeds every question in the document at path and appends the
// pairs to the store. Nothing is written unless the whole document embeds.
func (im *Importer) Import(ctx context.Context, path string) (*ImportStats, error) {
	startTime := time.Now()

	doc, err := docx.Open(im.fs, path)
	if err != nil {
		return nil, err
	}
	qs, err := question.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("extracting questions from %s: %w", path, err)
	}

	existing, err := im.store.FetchPairs(ctx)
	if err != nil {
		return nil, err
	}
	storeDims, err := reference.CheckDimensions(existing)
	if err != nil {
		return nil, err
	}

	total := len(qs)
	pairs := make([]reference.Pair, 0, total)
	for start := 0; start < total; start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+im.batchSize, total)
		batch, err := im.embedBatch(ctx, qs[start:end])
		if err != nil {
			return nil, err
		}
		for _, p := range batch {
			if storeDims > 0 && len(p.Question) != storeDims {
				return nil, fmt.Errorf("%w: store holds %d-dimensional embeddings, %s produces %d",
					reference.ErrStore, storeDims, im.provider.ModelName(), len(p.Question))
			}
		}
		pairs = append(pairs, batch...)

		if im.progress != nil {
			im.progress.OnProgress(end, total)
		}
	}

	if err := im.store.AddPairs(ctx, pairs); err != nil {
		return nil, err
	}
	count, err := im.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("imported document", "document", path, "pairs", len(pairs), "store_total", count)
	return &ImportStats{
		Document:   path,
		PairsAdded: len(pairs),
		StoreTotal: count,
		Model:      im.provider.ModelName(),
		Duration:   time.Since(startTime),
	}, nil
}

// embedBatch embeds the question and answer texts of qs in one request.
func (im *Importer) embedBatch(ctx context.Context, qs []question.Question) ([]reference.Pair, error) {
	texts := make([]string, 0, 2*len(qs))
	for i := range qs {
		texts = append(texts, qs[i].Text, qs[i].AnswerText())
	}
	embs, err := embedding.EmbedAll(ctx, im.provider, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding questions %s to %s: %w", qs[0].ID, qs[len(qs)-1].ID, err)
	}
	pairs := make([]reference.Pair, len(qs))
	for i := range qs {
		pairs[i] = reference.Pair{Question: embs[2*i].Vector, Answer: embs[2*i+1].Vector}
	}
	return pairs, nil
}
