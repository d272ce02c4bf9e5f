package question

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/embedding"
)

// answerMarker labels the row holding the correct option keys.
const answerMarker = "ANSWER:"

// DefaultConcurrency bounds in-flight embedding calls during Embed.
const DefaultConcurrency = 4

// Extract parses every table of doc and embeds the resulting questions.
// No embedding work happens unless the whole document parses.
func Extract(ctx context.Context, doc *docx.Document, p embedding.Provider, concurrency int) ([]Question, error) {
	qs, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	if err := Embed(ctx, p, qs, concurrency); err != nil {
		return nil, err
	}
	return qs, nil
}

// Parse builds one Question per table in document order. It fails on the
// first table that does not follow the exam-bank layout.
func Parse(doc *docx.Document) ([]Question, error) {
	tables := doc.Tables()
	qs := make([]Question, 0, len(tables))
	seen := make(map[string]int, len(tables))

	for i, t := range tables {
		q, err := parseTable(t, i)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[q.ID]; dup {
			slog.Warn("repeated question id", "id", q.ID, "table", i+1, "first_table", first+1)
		} else {
			seen[q.ID] = i
		}
		qs = append(qs, q)
	}

	slog.Debug("parsed questions", "tables", len(tables), "questions", len(qs))
	return qs, nil
}

func parseTable(t *docx.Table, index int) (Question, error) {
	id, _ := ParseID(t.CellText(0, 0))
	if id == "" {
		return Question{}, &FormatError{Reason: ReasonMissingID, Table: index}
	}
	q := Question{ID: id, Text: strings.TrimSpace(t.CellText(0, 1))}
	if q.Text == "" {
		return Question{}, &FormatError{Reason: ReasonMissingText, QuestionID: id, Table: index}
	}

	byLabel := make(map[string]string)
	for r := 1; r < len(t.Rows); r++ {
		head := strings.TrimSpace(t.CellText(r, 0))
		body := strings.TrimSpace(t.CellText(r, 1))

		switch {
		case isOptionLabel(head):
			label := strings.ToUpper(head[:len(head)-1])
			byLabel[label] = body
			q.Options = append(q.Options, Option{Label: label, Text: body})
		case head == answerMarker:
			q.CorrectKeys = parseKeys(body)
		}
	}

	for _, key := range q.CorrectKeys {
		text, ok := byLabel[key]
		if !ok {
			slog.Warn("answer key has no matching option", "id", id, "key", key)
			continue
		}
		q.CorrectAnswers = append(q.CorrectAnswers, text)
	}
	if len(q.CorrectAnswers) == 0 {
		return Question{}, &FormatError{Reason: ReasonMissingAnswer, QuestionID: id, Table: index}
	}
	return q, nil
}

// isOptionLabel reports whether s looks like "a." (two characters, trailing dot).
func isOptionLabel(s string) bool {
	return utf8.RuneCountInString(s) == 2 && strings.HasSuffix(s, ".")
}

// parseKeys splits "A, c" into distinct uppercase keys in first-seen order.
func parseKeys(s string) []string {
	var keys []string
	for _, tok := range strings.Split(strings.ToUpper(s), ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || slices.Contains(keys, tok) {
			continue
		}
		keys = append(keys, tok)
	}
	return keys
}

// Embed fills the question and answer embeddings of every question.
// Up to concurrency calls run at once; the first failure cancels the rest.
func Embed(ctx context.Context, p embedding.Provider, qs []Question, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range qs {
		q := &qs[i]
		g.Go(func() error {
			emb, err := p.Embed(ctx, q.Text)
			if err != nil {
				return fmt.Errorf("embedding question %s: %w", q.ID, err)
			}
			q.QuestionEmbedding = emb.Vector
			return nil
		})
		g.Go(func() error {
			emb, err := p.Embed(ctx, q.AnswerText())
			if err != nil {
				return fmt.Errorf("embedding answer of question %s: %w", q.ID, err)
			}
			q.AnswerEmbedding = emb.Vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Debug("embedded questions", "questions", len(qs), "model", p.ModelName())
	return nil
}
