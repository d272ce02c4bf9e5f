package export

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/matsen/examdup/internal/dedup"
)

// ResultsSheet is the name of the worksheet holding one row per result.
const ResultsSheet = "Results"

var reportHeader = []any{
	"ID", "Question", "Options", "Correct Answers", "Duplicate Type", "Similar",
	"Matched ID", "Matched Question", "Matched Answer", "Duplicate Options",
	"Question Similarity", "Answer Similarity", "Score",
}

// WriteReportXLSX writes the report's results to an .xlsx workbook at path.
func WriteReportXLSX(fsys afero.Fs, path string, report *dedup.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, ResultsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &reportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range report.Results {
		matchedAnswer := r.MatchedAnswer
		if matchedAnswer == "" {
			matchedAnswer = strings.Join(r.MatchedCorrectAnswers, "\n")
		}
		row := []any{
			r.ID,
			r.Question,
			strings.Join(r.Options, "\n"),
			strings.Join(r.CorrectAnswers, "\n"),
			r.DuplicateType,
			r.IsSimilar,
			r.MatchedQuestionID,
			r.MatchedQuestion,
			matchedAnswer,
			strings.Join(r.DuplicateOptions, "\n"),
			optional(r.QuestionSimilarity),
			optional(r.AnswerSimilarity),
			optional(r.SimilarityScore),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	return writeAtomic(fsys, path, func(w afero.File) error {
		return f.Write(w)
	})
}

// optional renders a missing number as an empty cell.
func optional(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
