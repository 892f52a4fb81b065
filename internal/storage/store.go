// Package storage is the relational execution layer shared by every mapper.
// Statements use $n placeholders in ascending order so the same SQL runs on
// PostgreSQL (lib/pq, pgx) and SQLite.
package storage

import (
	"context"
	"database/sql"
	"time"

	"tranquility/pkg/platform/tx"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Executor runs parametrised statements. When the context carries a unit of
// work the statement joins its transaction.
type Executor interface {
	Select(ctx context.Context, query string, args ...any) ([]Row, error)
	// SelectOne returns nil without error when no row matches.
	SelectOne(ctx context.Context, query string, args ...any) (Row, error)
	// Insert returns the number of rows written.
	Insert(ctx context.Context, query string, args ...any) (int64, error)
	// InsertReturning runs an INSERT ... RETURNING <id> and returns that id.
	InsertReturning(ctx context.Context, query string, args ...any) (int64, error)
	// Update returns the number of rows affected.
	Update(ctx context.Context, query string, args ...any) (int64, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is the database/sql Executor.
type Store struct {
	db *sql.DB
}

// New creates a Store over db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the pool for health checks and unit-of-work managers.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Store) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "select")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err, "select columns")
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classify(err, "scan row")
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate rows")
	}
	return out, nil
}

func (s *Store) SelectOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := s.Select(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Store) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	return s.exec(ctx, "insert", query, args...)
}

func (s *Store) InsertReturning(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify(err, "insert returning")
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, query string, args ...any) (int64, error) {
	return s.exec(ctx, "update", query, args...)
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, op+" rows affected")
	}
	return n, nil
}

// normalize flattens driver-specific scan types so callers see the same
// values regardless of driver.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
