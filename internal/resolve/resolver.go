package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/question"
	"github.com/matsen/examdup/internal/reference"
	"github.com/matsen/examdup/internal/semantic"
)

// MinOptionLength is the shortest option text (in characters, after
// trimming) considered by the internal-duplicate check; shorter options
// such as "Cat" or "Dog" are skipped.
const MinOptionLength = 4

// Resolver compares questions with each other and with reference pairs.
type Resolver struct {
	provider  embedding.Provider
	threshold float64
}

// New returns a resolver using p for on-demand embeddings.
func New(p embedding.Provider, threshold float64) *Resolver {
	return &Resolver{provider: p, threshold: threshold}
}

// Resolve classifies every question in order. It returns verdicts only
// when the whole run succeeds.
func (r *Resolver) Resolve(ctx context.Context, qs []question.Question, refs []reference.Pair) ([]Verdict, error) {
	if err := checkDimensions(qs, refs); err != nil {
		return nil, err
	}

	cache := newPairCache()
	var verdicts []Verdict

	for i := range qs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := &qs[i]

		v, found, err := r.internalDuplicate(ctx, q)
		if err != nil {
			return nil, err
		}
		if found {
			verdicts = append(verdicts, v)
			continue
		}

		docMatches, err := r.documentDuplicates(ctx, qs, i, cache)
		if err != nil {
			return nil, err
		}
		if len(docMatches) > 0 {
			verdicts = append(verdicts, docMatches...)
			continue
		}

		verdicts = append(verdicts, r.referenceVerdict(q, refs))
	}

	slog.Debug("resolved questions",
		"questions", len(qs),
		"references", len(refs),
		"verdicts", len(verdicts),
		"pair_cache_hits", cache.hits)
	return verdicts, nil
}

// internalDuplicate embeds the question's long-enough options and reports
// the first pair whose similarity clears the threshold.
func (r *Resolver) internalDuplicate(ctx context.Context, q *question.Question) (Verdict, bool, error) {
	type embedded struct {
		option question.Option
		vec    []float32
	}

	var opts []embedded
	for _, o := range q.Options {
		text := strings.TrimSpace(o.Text)
		if utf8.RuneCountInString(text) < MinOptionLength {
			continue
		}
		emb, err := r.provider.Embed(ctx, text)
		if err != nil {
			return Verdict{}, false, fmt.Errorf("embedding option %s of question %s: %w", o.Label, q.ID, err)
		}
		opts = append(opts, embedded{option: o, vec: emb.Vector})
	}

	for i := 0; i < len(opts); i++ {
		for j := i + 1; j < len(opts); j++ {
			sim := semantic.CosineSimilarity(opts[i].vec, opts[j].vec)
			if semantic.Exceeds(sim, r.threshold) {
				return Verdict{
					Kind:             KindInternal,
					Question:         q,
					DuplicateOptions: []string{opts[i].option.String(), opts[j].option.String()},
					AnswerSimilarity: sim,
					Score:            semantic.Percent(sim),
					HasScore:         true,
				}, true, nil
			}
		}
	}
	return Verdict{}, false, nil
}

// documentDuplicates compares qs[idx] with every other question.
func (r *Resolver) documentDuplicates(ctx context.Context, qs []question.Question, idx int, cache *pairCache) ([]Verdict, error) {
	q := &qs[idx]
	var out []Verdict

	for j := range qs {
		if j == idx {
			continue
		}
		other := &qs[j]

		res, ok := cache.get(idx, j)
		if !ok {
			as, err := r.answerSimilarity(ctx, q, other)
			if err != nil {
				return nil, err
			}
			res = pairResult{
				questionSim: semantic.CosineSimilarity(q.QuestionEmbedding, other.QuestionEmbedding),
				answerSim:   as,
			}
			cache.put(idx, j, res)
		}

		if semantic.BothExceed(res.questionSim, res.answerSim, r.threshold) {
			out = append(out, Verdict{
				Kind:               KindDocument,
				Question:           q,
				Match:              other,
				QuestionSimilarity: res.questionSim,
				AnswerSimilarity:   res.answerSim,
				Score:              semantic.Score(res.questionSim, res.answerSim),
				HasScore:           true,
			})
		}
	}
	return out, nil
}

// answerSimilarity is the mean per-position similarity of the correct
// answers, or 0 when the questions have different numbers of answers.
func (r *Resolver) answerSimilarity(ctx context.Context, a, b *question.Question) (float64, error) {
	if len(a.CorrectAnswers) != len(b.CorrectAnswers) {
		return 0, nil
	}
	sims := make([]float64, len(a.CorrectAnswers))
	for k := range a.CorrectAnswers {
		ea, err := r.provider.Embed(ctx, a.CorrectAnswers[k])
		if err != nil {
			return 0, fmt.Errorf("embedding answer of question %s: %w", a.ID, err)
		}
		eb, err := r.provider.Embed(ctx, b.CorrectAnswers[k])
		if err != nil {
			return 0, fmt.Errorf("embedding answer of question %s: %w", b.ID, err)
		}
		sims[k] = semantic.CosineSimilarity(ea.Vector, eb.Vector)
	}
	return semantic.Mean(sims), nil
}

// referenceVerdict returns the first reference match, or a unique verdict
// carrying the closest candidate.
func (r *Resolver) referenceVerdict(q *question.Question, refs []reference.Pair) Verdict {
	best := Verdict{Kind: KindUnique, Question: q, ReferenceIndex: -1}
	bestAvg := 0.0

	for k := range refs {
		ref := &refs[k]
		qs := semantic.CosineSimilarity(q.QuestionEmbedding, ref.Question)
		as := semantic.CosineSimilarity(q.AnswerEmbedding, ref.Answer)

		if semantic.BothExceed(qs, as, r.threshold) {
			return Verdict{
				Kind:               KindReference,
				Question:           q,
				Reference:          ref,
				ReferenceIndex:     k,
				QuestionSimilarity: qs,
				AnswerSimilarity:   as,
				Score:              semantic.Score(qs, as),
				HasScore:           true,
			}
		}

		avg := (qs + as) / 2
		if best.Reference == nil || avg > bestAvg {
			bestAvg = avg
			best.Reference = ref
			best.ReferenceIndex = k
			best.QuestionSimilarity = qs
			best.AnswerSimilarity = as
			best.Score = semantic.Score(qs, as)
			best.HasScore = true
		}
	}
	return best
}

// checkDimensions ensures every vector in the run has the same size.
func checkDimensions(qs []question.Question, refs []reference.Pair) error {
	if len(qs) == 0 {
		return nil
	}
	dims := len(qs[0].QuestionEmbedding)
	for i := range qs {
		if len(qs[i].QuestionEmbedding) != dims || len(qs[i].AnswerEmbedding) != dims {
			return fmt.Errorf("question %s: embedding dimensions %d/%d, want %d",
				qs[i].ID, len(qs[i].QuestionEmbedding), len(qs[i].AnswerEmbedding), dims)
		}
	}

	refDims, err := reference.CheckDimensions(refs)
	if err != nil {
		return err
	}
	if len(refs) > 0 && refDims != dims {
		return fmt.Errorf("%w: reference embeddings have %d dimensions, model produces %d",
			reference.ErrStore, refDims, dims)
	}
	return nil
}
