// Package question extracts multiple-choice questions from exam-bank documents.
package question

import "strings"

// Option is one labelled answer choice.
type Option struct {
	Label string // uppercase, e.g. "A"
	Text  string
}

// String renders the option as "<label>. <text>".
func (o Option) String() string {
	return o.Label + ". " + o.Text
}

// Question is a single question parsed from one document table.
type Question struct {
	ID             string
	Text           string
	Options        []Option
	CorrectKeys    []string
	CorrectAnswers []string

	QuestionEmbedding []float32
	AnswerEmbedding   []float32
}

// OptionStrings returns the options rendered with their labels.
func (q *Question) OptionStrings() []string {
	out := make([]string, len(q.Options))
	for i, o := range q.Options {
		out[i] = o.String()
	}
	return out
}

// AnswerText is the text embedded for the question's correct answers.
func (q *Question) AnswerText() string {
	return strings.Join(q.CorrectAnswers, " ")
}
