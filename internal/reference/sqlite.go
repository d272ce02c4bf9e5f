package reference

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLite stores pairs with JSON-encoded vectors.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens or creates a SQLite database file. With readOnly the
// file is opened through a mode=ro URI.
func OpenSQLite(ctx context.Context, path, table string, readOnly bool) (*SQLite, error) {
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapStore("opening sqlite", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapStore("connecting to sqlite", err)
	}
	return &SQLite{db: db, table: table}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Init creates the pairs table if needed.
func (s *SQLite) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_embedding_json TEXT NOT NULL,
		answer_embedding_json TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return wrapStore("creating table", err)
	}
	return nil
}

// FetchPairs returns every stored pair in insertion order.
func (s *SQLite) FetchPairs(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT question_embedding_json, answer_embedding_json FROM %s ORDER BY id", s.table))
	if err != nil {
		return nil, wrapStore("querying pairs", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var qJSON, aJSON string
		if err := rows.Scan(&qJSON, &aJSON); err != nil {
			return nil, wrapStore("scanning pair", err)
		}
		var p Pair
		if err := json.Unmarshal([]byte(qJSON), &p.Question); err != nil {
			return nil, wrapStore(fmt.Sprintf("row %d question_embedding", len(pairs)), err)
		}
		if err := json.Unmarshal([]byte(aJSON), &p.Answer); err != nil {
			return nil, wrapStore(fmt.Sprintf("row %d answer_embedding", len(pairs)), err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStore("reading pairs", err)
	}
	if _, err := CheckDimensions(pairs); err != nil {
		return nil, err
	}

	slog.Debug("fetched reference pairs", "driver", DriverSQLite, "pairs", len(pairs))
	return pairs, nil
}

// AddPairs appends pairs in a single transaction.
func (s *SQLite) AddPairs(ctx context.Context, pairs []Pair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("beginning transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (question_embedding_json, answer_embedding_json) VALUES (?, ?)", s.table))
	if err != nil {
		return wrapStore("preparing insert", err)
	}
	defer stmt.Close()

	for i, p := range pairs {
		qJSON, err := json.Marshal(p.Question)
		if err != nil {
			return wrapStore(fmt.Sprintf("encoding pair %d", i), err)
		}
		aJSON, err := json.Marshal(p.Answer)
		if err != nil {
			return wrapStore(fmt.Sprintf("encoding pair %d", i), err)
		}
		if _, err := stmt.ExecContext(ctx, string(qJSON), string(aJSON)); err != nil {
			return wrapStore(fmt.Sprintf("inserting pair %d", i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStore("committing pairs", err)
	}
	return nil
}

// Count returns the number of stored pairs.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, wrapStore("counting pairs", err)
	}
	return n, nil
}
