package question

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/docx/docxtest"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/embedding/embeddingtest"
)

func parseDoc(t *testing.T, blocks ...string) *docx.Document {
	t.Helper()
	doc, err := docx.Parse(docxtest.Package(blocks...))
	if err != nil {
		t.Fatalf("docx.Parse() error = %v", err)
	}
	return doc
}

func TestParse(t *testing.T) {
	doc := parseDoc(t,
		docxtest.Paragraph("Exam bank"),
		docxtest.Question("1", "What is 2+2?", []string{"3", "4", "5"}, "B"),
		docxtest.Table(
			[]string{" QN= 7 ", "  Pick the primes  "},
			[]string{"a.", "2"},
			[]string{"b.", "4"},
			[]string{"c.", "5"},
			[]string{"UNIT:", "arithmetic"},
			[]string{"ANSWER:", " a , c ,"},
		),
	)

	qs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("Parse() returned %d questions, want 2", len(qs))
	}

	first := qs[0]
	if first.ID != "1" || first.Text != "What is 2+2?" {
		t.Errorf("first = %q/%q", first.ID, first.Text)
	}
	wantOptions := []string{"A. 3", "B. 4", "C. 5"}
	if got := first.OptionStrings(); !reflect.DeepEqual(got, wantOptions) {
		t.Errorf("OptionStrings() = %v, want %v", got, wantOptions)
	}
	if !reflect.DeepEqual(first.CorrectAnswers, []string{"4"}) {
		t.Errorf("CorrectAnswers = %v", first.CorrectAnswers)
	}

	second := qs[1]
	if second.ID != "7" || second.Text != "Pick the primes" {
		t.Errorf("second = %q/%q", second.ID, second.Text)
	}
	if !reflect.DeepEqual(second.CorrectKeys, []string{"A", "C"}) {
		t.Errorf("CorrectKeys = %v", second.CorrectKeys)
	}
	if !reflect.DeepEqual(second.CorrectAnswers, []string{"2", "5"}) {
		t.Errorf("CorrectAnswers = %v", second.CorrectAnswers)
	}
	if second.AnswerText() != "2 5" {
		t.Errorf("AnswerText() = %q", second.AnswerText())
	}
}

func TestParse_AnswerKeyOrder(t *testing.T) {
	doc := parseDoc(t, docxtest.Question("3", "Order?", []string{"x", "y", "z"}, "C,A,Q"))

	qs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(qs[0].CorrectAnswers, []string{"z", "x"}) {
		t.Errorf("CorrectAnswers = %v, want [z x]", qs[0].CorrectAnswers)
	}
}

func TestParse_RepeatedKeysCollapse(t *testing.T) {
	doc := parseDoc(t, docxtest.Question("4", "Capital of France?", []string{"Paris", "Lyon"}, "A, a, B, A"))

	qs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(qs[0].CorrectKeys, []string{"A", "B"}) {
		t.Errorf("CorrectKeys = %v, want [A B]", qs[0].CorrectKeys)
	}
	if !reflect.DeepEqual(qs[0].CorrectAnswers, []string{"Paris", "Lyon"}) {
		t.Errorf("CorrectAnswers = %v, want [Paris Lyon]", qs[0].CorrectAnswers)
	}
}

func TestParse_RepeatedIDsAreKept(t *testing.T) {
	doc := parseDoc(t,
		docxtest.Question("1", "Capital of France?", []string{"Paris", "Lyon"}, "A"),
		docxtest.Question("1", "France's capital city?", []string{"Paris", "Nice"}, "A"),
	)

	qs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("Parse() returned %d questions, want 2", len(qs))
	}
	if qs[0].ID != "1" || qs[1].ID != "1" || qs[1].Text != "France's capital city?" {
		t.Errorf("questions = %q/%q, %q/%q", qs[0].ID, qs[0].Text, qs[1].ID, qs[1].Text)
	}
}

func TestParse_WarnsAboutKeptContent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	doc := parseDoc(t,
		docxtest.Question("7", "Capital of France?", []string{"Paris", "Lyon"}, "A, D"),
		docxtest.Question("7", "Largest French city?", []string{"Paris", "Lyon"}, "A"),
	)
	if _, err := Parse(doc); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	logs := buf.String()
	for _, want := range []string{
		`level=WARN msg="answer key has no matching option" id=7 key=D`,
		`level=WARN msg="repeated question id" id=7 table=2 first_table=1`,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestParse_NoTables(t *testing.T) {
	qs, err := Parse(parseDoc(t, docxtest.Paragraph("nothing here")))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("Parse() = %d questions, want 0", len(qs))
	}
}

func TestParse_FormatErrors(t *testing.T) {
	valid := docxtest.Question("1", "ok", []string{"yes"}, "A")

	tests := []struct {
		name   string
		blocks []string
		reason Reason
		id     string
		table  int
	}{
		{
			name:   "first cell without QN",
			blocks: []string{docxtest.Table([]string{"Question 1", "text"}, []string{"a.", "x"}, []string{"ANSWER:", "A"})},
			reason: ReasonMissingID,
		},
		{
			name:   "empty id",
			blocks: []string{valid, docxtest.Table([]string{"QN=  ", "text"}, []string{"a.", "x"}, []string{"ANSWER:", "A"})},
			reason: ReasonMissingID,
			table:  1,
		},
		{
			name:   "missing text",
			blocks: []string{docxtest.Table([]string{"QN=5", "   "}, []string{"a.", "x"}, []string{"ANSWER:", "A"})},
			reason: ReasonMissingText,
			id:     "5",
		},
		{
			name:   "single cell header",
			blocks: []string{docxtest.Table([]string{"QN=5"}, []string{"a.", "x"}, []string{"ANSWER:", "A"})},
			reason: ReasonMissingText,
			id:     "5",
		},
		{
			name:   "answer key without option",
			blocks: []string{docxtest.Question("9", "text", []string{"x", "y"}, "D")},
			reason: ReasonMissingAnswer,
			id:     "9",
		},
		{
			name:   "no answer row",
			blocks: []string{docxtest.Table([]string{"QN=9", "text"}, []string{"a.", "x"})},
			reason: ReasonMissingAnswer,
			id:     "9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(parseDoc(t, tt.blocks...))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("Parse() error = %v, want ErrMalformedDocument", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Parse() error %T is not a *FormatError", err)
			}
			if fe.Reason != tt.reason || fe.QuestionID != tt.id || fe.Table != tt.table {
				t.Errorf("FormatError = %+v, want reason %q id %q table %d", fe, tt.reason, tt.id, tt.table)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	fake := embeddingtest.New().
		Set("What is 2+2?", 1, 0).
		Set("4", 0, 1)
	doc := parseDoc(t, docxtest.Question("1", "What is 2+2?", []string{"3", "4"}, "B"))

	qs, err := Extract(context.Background(), doc, fake, 2)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !reflect.DeepEqual(qs[0].QuestionEmbedding, embeddingtest.Pad(1, 0)) {
		t.Errorf("QuestionEmbedding = %v", qs[0].QuestionEmbedding[:2])
	}
	if !reflect.DeepEqual(qs[0].AnswerEmbedding, embeddingtest.Pad(0, 1)) {
		t.Errorf("AnswerEmbedding = %v", qs[0].AnswerEmbedding[:2])
	}
}

func TestExtract_MalformedDocumentMakesNoEmbeddingCalls(t *testing.T) {
	fake := embeddingtest.New()
	doc := parseDoc(t,
		docxtest.Question("1", "fine", []string{"x"}, "A"),
		docxtest.Question("2", "broken", []string{"x"}, "Z"),
	)

	if _, err := Extract(context.Background(), doc, fake, 2); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("Extract() error = %v, want ErrMalformedDocument", err)
	}
	if n := fake.TotalCalls(); n != 0 {
		t.Errorf("provider called %d times, want 0", n)
	}
}

func TestEmbed_PropagatesFailure(t *testing.T) {
	fake := embeddingtest.New().Fail("q2", embedding.ErrUnavailable)
	qs := []Question{
		{ID: "1", Text: "q1", CorrectAnswers: []string{"a"}},
		{ID: "2", Text: "q2", CorrectAnswers: []string{"b"}},
	}

	err := Embed(context.Background(), fake, qs, 1)
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("Embed() error = %v, want ErrUnavailable", err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		cell   string
		wantID string
		wantOK bool
	}{
		{"QN=12", "12", true},
		{"  QN= 12 ", "12", true},
		{"QN=", "", true},
		{"qn=12", "", false},
		{"ANSWER:", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		id, ok := ParseID(tt.cell)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseID(%q) = %q, %v, want %q, %v", tt.cell, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
