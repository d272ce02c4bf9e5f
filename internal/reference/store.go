// Package reference reads and writes the store of precomputed
// (question, answer) embedding pairs that documents are checked against.
package reference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
)

// ErrStore wraps every failure to open, read, or write a reference store.
var ErrStore = errors.New("reference store error")

// Display placeholders for reference matches; the store holds no text.
const (
	QuestionPlaceholder = "Question from DB"
	AnswerPlaceholder   = "Answer from DB"
)

// Supported drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// DefaultTable is the table name of the legacy data.duckdb store.
const DefaultTable = "data"

// Pair is one stored question/answer embedding pair.
type Pair struct {
	Question []float32
	Answer   []float32
}

// Store is a read-only source of reference pairs.
type Store interface {
	// FetchPairs returns a snapshot of every stored pair.
	FetchPairs(ctx context.Context) ([]Pair, error)
	Close() error
}

// Writer appends pairs to a store.
type Writer interface {
	Store
	// Init creates the table if it does not exist.
	Init(ctx context.Context) error
	AddPairs(ctx context.Context, pairs []Pair) error
	Count(ctx context.Context) (int, error)
}

// Config selects a store backend.
type Config struct {
	Driver string
	Path   string
	Table  string

	// ReadOnly opens an existing store without write access; a missing
	// file is an error instead of a new empty database.
	ReadOnly bool
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open connects to the store described by cfg, creating the database
// file if needed. Use OpenReadOnly for checks.
func Open(ctx context.Context, cfg Config) (Writer, error) {
	if cfg.Path == "" {
		return nil, storeErr("no store path configured")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tableName.MatchString(cfg.Table) {
		return nil, storeErr("invalid table name %q", cfg.Table)
	}

	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, storeErr("%s does not exist (run 'examdup store init')", cfg.Path)
			}
			return nil, wrapStore("checking store file", err)
		}
	}

	switch cfg.Driver {
	case "", DriverDuckDB:
		return OpenDuckDB(ctx, cfg.Path, cfg.Table, cfg.ReadOnly)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path, cfg.Table, cfg.ReadOnly)
	default:
		return nil, storeErr("unsupported driver %q (supported: duckdb, sqlite)", cfg.Driver)
	}
}

// OpenReadOnly opens an existing store for reading.
func OpenReadOnly(ctx context.Context, cfg Config) (Writer, error) {
	cfg.ReadOnly = true
	return Open(ctx, cfg)
}

// CheckDimensions verifies that every pair has non-empty vectors of one
// shared size and returns that size (0 for no pairs).
func CheckDimensions(pairs []Pair) (int, error) {
	dims := 0
	for i, p := range pairs {
		if len(p.Question) == 0 || len(p.Answer) == 0 {
			return 0, storeErr("row %d: empty embedding", i)
		}
		if dims == 0 {
			dims = len(p.Question)
		}
		if len(p.Question) != dims || len(p.Answer) != dims {
			return 0, storeErr("row %d: embedding dimensions %d/%d, want %d", i, len(p.Question), len(p.Answer), dims)
		}
	}
	return dims, nil
}

func storeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStore, fmt.Sprintf(format, args...))
}

func wrapStore(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
