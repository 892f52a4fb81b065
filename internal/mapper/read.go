package mapper

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// Query narrows a list read. Filter and OrderBy use API keys; an OrderBy key
// prefixed with "-" sorts descending.
type Query struct {
	Filter    map[string]any
	OrderBy   []string
	Limit     int
	Offset    int
	Selection projection.Selection
}

var auditColumns = map[string]string{
	"version":            "e.version",
	"transaction_id":     "a.transaction_id",
	"transaction_source": "a.transaction_source",
	"update_by":          "a.update_by",
	"update_datetime":    "a.update_datetime",
	"update_reason":      "a.update_reason",
}

// column resolves an API key to a qualified column of k's select.
func (k *kind) column(key string) (string, error) {
	f, ok := projection.Verbose(k.fields).Lookup(key)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("unknown field %q for %s", key, k.name))
	}
	if ref, ok := auditColumns[f.Column]; ok {
		return ref, nil
	}
	if f.Column == "id" {
		return "b.id", nil
	}
	return "b." + f.Column, nil
}

func (c *core) list(ctx context.Context, k *kind, q Query) (*response.Response, error) {
	query := k.selectSQL()
	var args []any
	if len(q.Filter) > 0 {
		keys := make([]string, 0, len(q.Filter))
		for key := range q.Filter {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			col, err := k.column(key)
			if err != nil {
				return nil, err
			}
			args = append(args, q.Filter[key])
			query += fmt.Sprintf(" AND %s = $%d", col, len(args))
		}
	}

	order := make([]string, 0, len(q.OrderBy)+1)
	for _, key := range q.OrderBy {
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			key, dir = key[1:], "DESC"
		}
		col, err := k.column(key)
		if err != nil {
			return nil, err
		}
		order = append(order, col+" "+dir)
	}
	order = append(order, "b.id ASC")
	query += " ORDER BY " + strings.Join(order, ", ")

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if q.Offset > 0 {
			args = append(args, q.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := c.exec.Select(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return c.respond(rows, k, q.Selection, k.codes.listed), nil
}

func (c *core) get(ctx context.Context, k *kind, id int64, sel projection.Selection) (*response.Response, error) {
	rows, err := c.exec.Select(ctx, k.selectSQL()+" AND b.id = $1", id)
	if err != nil {
		return nil, err
	}
	return c.respond(rows, k, sel, k.codes.retrieved), nil
}

// historyOf returns every prior version of id, oldest first, verbose.
func (c *core) historyOf(ctx context.Context, k *kind, id int64) (*response.Response, error) {
	rows, err := c.history.Rows(ctx, k.tables, id)
	if err != nil {
		return nil, err
	}
	return c.respond(rows, k, projection.Selection{Verbose: true}, k.codes.listed), nil
}

func (c *core) respond(rows []storage.Row, k *kind, sel projection.Selection, code int) *response.Response {
	if len(rows) == 0 {
		return noRecords()
	}
	resp := response.New()
	resp.SetContent(projection.Transform(rows, k.fields, sel))
	resp.AddMessage(code, response.LevelSuccess, "")
	return resp
}

func noRecords() *response.Response {
	resp := response.New()
	resp.AddMessage(response.MsgNoRecords, response.LevelWarning, "")
	return resp
}
