// Package dedup runs the duplicate check over a document and builds
// reference stores from documents.
package dedup

import (
	"time"

	"github.com/google/uuid"

	"github.com/matsen/examdup/internal/reference"
	"github.com/matsen/examdup/internal/resolve"
)

// Result is the serialized form of one verdict.
type Result struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correct_answers"`

	MatchedQuestionID     string   `json:"matched_question_id,omitempty"`
	MatchedQuestion       string   `json:"matched_question,omitempty"`
	MatchedOptions        []string `json:"matched_options,omitempty"`
	MatchedCorrectAnswers []string `json:"matched_correct_answers,omitempty"`
	MatchedAnswer         string   `json:"matched_answer,omitempty"`
	DuplicateOptions      []string `json:"duplicate_options,omitempty"`

	QuestionSimilarity *float64 `json:"question_similarity,omitempty"`
	AnswerSimilarity   *float64 `json:"answer_similarity,omitempty"`
	SimilarityScore    *float64 `json:"similarity_score,omitempty"`

	DuplicateType string `json:"duplicate_type"`
	IsSimilar     bool   `json:"is_similar"`
}

// NewResult converts a verdict for presentation.
func NewResult(v *resolve.Verdict) Result {
	q := v.Question
	r := Result{
		ID:             q.ID,
		Question:       q.Text,
		Options:        q.OptionStrings(),
		CorrectAnswers: q.CorrectAnswers,
		DuplicateType:  string(v.Kind),
		IsSimilar:      v.IsDuplicate(),
	}
	if v.HasScore {
		r.SimilarityScore = float64Ptr(v.Score)
	}

	switch v.Kind {
	case resolve.KindInternal:
		r.DuplicateOptions = v.DuplicateOptions
	case resolve.KindDocument:
		m := v.Match
		r.MatchedQuestionID = m.ID
		r.MatchedQuestion = m.Text
		r.MatchedOptions = m.OptionStrings()
		r.MatchedCorrectAnswers = m.CorrectAnswers
		r.QuestionSimilarity = float64Ptr(v.QuestionSimilarity)
		r.AnswerSimilarity = float64Ptr(v.AnswerSimilarity)
	case resolve.KindReference, resolve.KindUnique:
		if v.Reference != nil {
			r.MatchedQuestion = reference.QuestionPlaceholder
			r.MatchedAnswer = reference.AnswerPlaceholder
			r.QuestionSimilarity = float64Ptr(v.QuestionSimilarity)
			r.AnswerSimilarity = float64Ptr(v.AnswerSimilarity)
		}
	}
	return r
}

func float64Ptr(f float64) *float64 {
	return &f
}

// Summary counts questions by outcome. A question with several document
// matches is counted once.
type Summary struct {
	Questions  int `json:"questions"`
	Duplicates int `json:"duplicates"`
	Internal   int `json:"internal"`
	Document   int `json:"docx"`
	Reference  int `json:"db"`
	Unique     int `json:"unique"`
}

// Report is the outcome of checking one document.
type Report struct {
	RunID      uuid.UUID `json:"run_id"`
	Document   string    `json:"document"`
	Threshold  float64   `json:"threshold"`
	Model      string    `json:"model"`
	References int       `json:"references"`
	CheckedAt  time.Time `json:"checked_at"`
	DurationMs int64     `json:"duration_ms"`
	Summary    Summary   `json:"summary"`
	Results    []Result  `json:"results"`
}

func summarize(questions int, verdicts []resolve.Verdict) Summary {
	s := Summary{Questions: questions}
	seen := make(map[string]bool, questions)
	for i := range verdicts {
		v := &verdicts[i]
		id := v.Question.ID
		if seen[id] {
			continue
		}
		seen[id] = true
		switch v.Kind {
		case resolve.KindInternal:
			s.Internal++
		case resolve.KindDocument:
			s.Document++
		case resolve.KindReference:
			s.Reference++
		default:
			s.Unique++
		}
	}
	s.Duplicates = s.Internal + s.Document + s.Reference
	return s
}
