package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/dedup"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/export"
	"github.com/matsen/examdup/internal/resolve"
)

var (
	checkXLSXPath  string
	checkOnlyDups  bool
	checkThreshold float64
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkXLSXPath, "xlsx", "", "Also write the results to an .xlsx report")
	checkCmd.Flags().BoolVar(&checkOnlyDups, "duplicates", false, "Only list flagged questions")
	checkCmd.Flags().Float64Var(&checkThreshold, "threshold", 0, "Override the configured similarity threshold (0 < t < 1)")
}

var checkCmd = &cobra.Command{
	Use:   "check <doc.docx>",
	Short: "Check a document for duplicate questions",
	Long: `Check every question in a .docx exam bank.

Each question is classified as:
  internal  two of its own options mean the same thing
  docx      it matches another question in the same document
  db        it matches a pair in the reference store
  none      unique (the closest reference pair is still reported)

A pair counts as a match only when both the question similarity and the
answer similarity are strictly above the threshold.

Example:
  examdup check bank.docx --human
  examdup check bank.docx --xlsx report.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	override := cmd.Flags().Changed("threshold")
	if override && (checkThreshold <= 0 || checkThreshold >= 1) {
		exitUsage("--threshold must be between 0 and 1 (exclusive), got %v", checkThreshold)
	}
	cfg := mustLoadConfig(!override)
	if override {
		cfg.Threshold = checkThreshold
	}

	store := mustOpenStore(ctx, cfg, true)
	defer store.Close()

	checker := &dedup.Checker{
		FS:          osFS,
		Provider:    embedding.NewShared(embeddingConfig(cfg)),
		Store:       store,
		Threshold:   cfg.Threshold,
		Concurrency: cfg.Embedding.Concurrency,
	}

	report, err := checker.Check(ctx, args[0])
	if err != nil {
		exitWithError(err, "checking %s", args[0])
	}

	if checkXLSXPath != "" {
		if err := export.WriteReportXLSX(osFS, checkXLSXPath, report); err != nil {
			exitWithError(err, "writing report")
		}
	}

	if checkOnlyDups {
		report.Results = flaggedOnly(report.Results)
	}

	if humanOutput {
		printReport(report)
		if checkXLSXPath != "" {
			fmt.Printf("\nReport written to %s\n", checkXLSXPath)
		}
		return nil
	}
	return outputJSON(report)
}

func flaggedOnly(results []dedup.Result) []dedup.Result {
	out := make([]dedup.Result, 0, len(results))
	for _, r := range results {
		if r.IsSimilar {
			out = append(out, r)
		}
	}
	return out
}

func printReport(report *dedup.Report) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n", bold("Document:"), report.Document)
	fmt.Printf("%s %s (threshold %.2f, %d reference pairs)\n\n",
		bold("Model:"), report.Model, report.Threshold, report.References)

	for _, r := range report.Results {
		fmt.Printf("%s %-6s %s\n", kindLabel(r.DuplicateType), r.ID, truncate(r.Question, QuestionMaxLen))
		if detail := resultDetail(r); detail != "" {
			fmt.Printf("         %s\n", gray(detail))
		}
	}

	s := report.Summary
	fmt.Printf("\n%s %d questions, %d flagged (internal %d, docx %d, db %d), %d unique\n",
		bold("Summary:"), s.Questions, s.Duplicates, s.Internal, s.Document, s.Reference, s.Unique)
}

// kindLabel renders the duplicate type as a fixed-width colored tag.
func kindLabel(kind string) string {
	label := fmt.Sprintf("[%-8s]", kind)
	switch resolve.Kind(kind) {
	case resolve.KindInternal:
		return color.MagentaString(label)
	case resolve.KindDocument:
		return color.YellowString(label)
	case resolve.KindReference:
		return color.RedString(label)
	default:
		return color.GreenString(label)
	}
}

func resultDetail(r dedup.Result) string {
	var parts []string
	switch {
	case len(r.DuplicateOptions) > 0:
		parts = append(parts, "options "+strings.Join(r.DuplicateOptions, " / "))
	case r.MatchedQuestionID != "":
		parts = append(parts, "matches "+r.MatchedQuestionID)
	case r.MatchedQuestion != "" && r.IsSimilar:
		parts = append(parts, "matches reference pair")
	case r.MatchedQuestion != "":
		parts = append(parts, "closest reference pair")
	}
	if r.QuestionSimilarity != nil && r.AnswerSimilarity != nil {
		parts = append(parts, fmt.Sprintf("question %.3f, answer %.3f", *r.QuestionSimilarity, *r.AnswerSimilarity))
	}
	if r.SimilarityScore != nil {
		parts = append(parts, fmt.Sprintf("score %.1f", *r.SimilarityScore))
	}
	return strings.Join(parts, ", ")
}
