// Package resolve classifies extracted questions as duplicates or unique.
package resolve

import (
	"github.com/matsen/examdup/internal/question"
	"github.com/matsen/examdup/internal/reference"
)

// Kind is the reason a question was flagged.
type Kind string

const (
	KindInternal  Kind = "internal" // two of the question's own options match
	KindDocument  Kind = "docx"     // matches another question in the same document
	KindReference Kind = "db"       // matches a stored reference pair
	KindUnique    Kind = "none"
)

// Verdict is one classification of a question. A question that matches
// several others in its document gets one KindDocument verdict per match.
type Verdict struct {
	Kind     Kind
	Question *question.Question

	// Match is set for KindDocument.
	Match *question.Question

	// Reference is the matched pair for KindReference, or the closest
	// candidate for KindUnique. ReferenceIndex is its position in the store.
	Reference      *reference.Pair
	ReferenceIndex int

	// DuplicateOptions holds the two matching options for KindInternal.
	DuplicateOptions []string

	QuestionSimilarity float64
	AnswerSimilarity   float64

	// Score is the 0-100 display score; HasScore is false for a unique
	// question when there were no reference pairs to compare against.
	Score    float64
	HasScore bool
}

// IsDuplicate reports whether the verdict flags the question.
func (v *Verdict) IsDuplicate() bool {
	return v.Kind != KindUnique
}
