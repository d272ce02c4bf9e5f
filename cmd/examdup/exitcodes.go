package main

import (
	"context"
	"errors"

	"github.com/matsen/examdup/internal/config"
	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/export"
	"github.com/matsen/examdup/internal/question"
	"github.com/matsen/examdup/internal/reference"
)

// Exit codes
const (
	ExitSuccess              = 0 // Success
	ExitError                = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError          = 2 // Missing or invalid configuration
	ExitNotFound             = 3 // Document not found
	ExitDataError            = 4 // Malformed document
	ExitEmbeddingUnavailable = 5 // Embedding model or service unavailable
	ExitStoreError           = 6 // Reference store unreadable
	ExitOutputError          = 7 // Output file could not be written
	ExitInterrupted          = 130
)

// exitCodeFor classifies err into an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, config.ErrConfiguration):
		return ExitConfigError
	case errors.Is(err, docx.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, question.ErrMalformedDocument), errors.Is(err, docx.ErrInvalid):
		return ExitDataError
	case errors.Is(err, embedding.ErrUnavailable):
		return ExitEmbeddingUnavailable
	case errors.Is(err, reference.ErrStore):
		return ExitStoreError
	case errors.Is(err, export.ErrOutputWrite):
		return ExitOutputError
	default:
		return ExitError
	}
}
