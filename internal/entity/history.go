package entity

import (
	"context"
	"fmt"
	"strings"

	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// Tables pairs a business table with its history table. Columns lists every
// business column except id; it must include transaction_id.
type Tables struct {
	Business string
	History  string
	Columns  []string
}

// History is the historical snapshot writer.
type History struct {
	exec storage.Executor
}

// NewHistory creates a History over exec.
func NewHistory(exec storage.Executor) *History {
	return &History{exec: exec}
}

// Snapshot copies the current business row into the history table under the
// entity's current version. It must run before the version is incremented.
// False means no source row was found and the unit of work must abort.
func (h *History) Snapshot(ctx context.Context, t Tables, id int64) (bool, error) {
	cols := strings.Join(t.Columns, ", ")
	query := fmt.Sprintf(
		`INSERT INTO %s (id, version, %s) SELECT b.id, e.version, %s FROM %s b JOIN entity e ON e.id = b.id WHERE b.id = $1`,
		t.History, cols, prefixed("b", t.Columns), t.Business)
	n, err := h.exec.Insert(ctx, query, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodePersistence, "snapshot "+t.Business)
	}
	return n > 0, nil
}

// Rows lists the history of id ordered by version, joined with the audit
// record of the transaction that produced each version.
func (h *History) Rows(ctx context.Context, t Tables, id int64) ([]storage.Row, error) {
	query := fmt.Sprintf(
		`SELECT h.id, h.version, %s, a.transaction_source, a.update_by, a.update_datetime, a.update_reason
		 FROM %s h LEFT JOIN sys_trans_audit a ON a.transaction_id = h.transaction_id
		 WHERE h.id = $1 ORDER BY h.version`,
		prefixed("h", t.Columns), t.History)
	rows, err := h.exec.Select(ctx, query, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "read history "+t.History)
	}
	return rows, nil
}

func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}
