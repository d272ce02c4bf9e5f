package reference

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDB reads the legacy data.duckdb layout:
// <table>(question_embedding FLOAT[], answer_embedding FLOAT[]).
type DuckDB struct {
	db    *sql.DB
	table string
}

// OpenDuckDB opens or creates a DuckDB database file. With readOnly the
// file must exist and is opened with access_mode=read_only.
func OpenDuckDB(ctx context.Context, path, table string, readOnly bool) (*DuckDB, error) {
	dsn := path
	if readOnly {
		dsn += "?access_mode=read_only"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, wrapStore("opening duckdb", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapStore("connecting to duckdb", err)
	}
	return &DuckDB{db: db, table: table}, nil
}

// Close closes the database connection.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

// Init creates the pairs table if needed.
func (d *DuckDB) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		question_embedding FLOAT[],
		answer_embedding FLOAT[]
	)`, d.table)
	if _, err := d.db.ExecContext(ctx, q); err != nil {
		return wrapStore("creating table", err)
	}
	return nil
}

// FetchPairs returns every stored pair in table order.
func (d *DuckDB) FetchPairs(ctx context.Context) ([]Pair, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT question_embedding, answer_embedding FROM %s", d.table))
	if err != nil {
		return nil, wrapStore("querying pairs", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var qRaw, aRaw any
		if err := rows.Scan(&qRaw, &aRaw); err != nil {
			return nil, wrapStore("scanning pair", err)
		}
		q, err := toFloat32s(qRaw)
		if err != nil {
			return nil, wrapStore(fmt.Sprintf("row %d question_embedding", len(pairs)), err)
		}
		a, err := toFloat32s(aRaw)
		if err != nil {
			return nil, wrapStore(fmt.Sprintf("row %d answer_embedding", len(pairs)), err)
		}
		pairs = append(pairs, Pair{Question: q, Answer: a})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStore("reading pairs", err)
	}
	if _, err := CheckDimensions(pairs); err != nil {
		return nil, err
	}

	slog.Debug("fetched reference pairs", "driver", DriverDuckDB, "pairs", len(pairs))
	return pairs, nil
}

// AddPairs appends pairs in a single transaction.
func (d *DuckDB) AddPairs(ctx context.Context, pairs []Pair) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("beginning transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (question_embedding, answer_embedding) VALUES (?::FLOAT[], ?::FLOAT[])", d.table))
	if err != nil {
		return wrapStore("preparing insert", err)
	}
	defer stmt.Close()

	for i, p := range pairs {
		if _, err := stmt.ExecContext(ctx, listLiteral(p.Question), listLiteral(p.Answer)); err != nil {
			return wrapStore(fmt.Sprintf("inserting pair %d", i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStore("committing pairs", err)
	}
	return nil
}

// Count returns the number of stored pairs.
func (d *DuckDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", d.table)).Scan(&n); err != nil {
		return 0, wrapStore("counting pairs", err)
	}
	return n, nil
}

// toFloat32s converts a scanned DuckDB list value into a vector.
func toFloat32s(v any) ([]float32, error) {
	switch vec := v.(type) {
	case nil:
		return nil, fmt.Errorf("null embedding")
	case []float32:
		return vec, nil
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(vec))
		for i, e := range vec {
			switch f := e.(type) {
			case float32:
				out[i] = f
			case float64:
				out[i] = float32(f)
			default:
				return nil, fmt.Errorf("element %d has type %T", i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected embedding type %T", v)
	}
}

// listLiteral renders vec as a DuckDB list literal, e.g. "[0.1, 0.2]".
func listLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
