package question

import (
	"errors"
	"fmt"
)

// ErrMalformedDocument is matched by every FormatError.
var ErrMalformedDocument = errors.New("malformed document")

// Reason classifies a FormatError.
type Reason string

const (
	ReasonMissingID     Reason = "missing question id"
	ReasonMissingText   Reason = "missing question text"
	ReasonMissingAnswer Reason = "no correct answer resolved"
)

// FormatError reports a table that does not follow the exam-bank layout.
type FormatError struct {
	Reason     Reason
	QuestionID string // empty for ReasonMissingID
	Table      int    // zero-based index among the document's tables
}

func (e *FormatError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("table %d: %s", e.Table+1, e.Reason)
	}
	return fmt.Sprintf("question %s (table %d): %s", e.QuestionID, e.Table+1, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedDocument.
func (e *FormatError) Unwrap() error {
	return ErrMalformedDocument
}
