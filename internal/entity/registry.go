package entity

import (
	"context"
	"fmt"
	"time"

	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// Registry reads and writes entity and entity_xref rows.
type Registry struct {
	exec storage.Executor
}

// NewRegistry creates a Registry over exec.
func NewRegistry(exec storage.Executor) *Registry {
	return &Registry{exec: exec}
}

// CreateEntity inserts a live, unlocked entity at version 1.
func (r *Registry) CreateEntity(ctx context.Context, typ Type, subtype string) (int64, error) {
	id, err := r.exec.InsertReturning(ctx,
		`INSERT INTO entity (type, subtype, version, deleted, locked) VALUES ($1, $2, 1, FALSE, FALSE) RETURNING id`,
		string(typ), subtype)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "create entity")
	}
	return id, nil
}

// IncrementVersion bumps the version. False means the row vanished and the
// surrounding unit of work must abort.
func (r *Registry) IncrementVersion(ctx context.Context, id int64) (bool, error) {
	n, err := r.exec.Update(ctx, `UPDATE entity SET version = version + 1 WHERE id = $1`, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodePersistence, "increment entity version")
	}
	return n > 0, nil
}

// SoftDelete flags the entity deleted and bumps its version in one statement.
func (r *Registry) SoftDelete(ctx context.Context, id int64) (bool, error) {
	n, err := r.exec.Update(ctx, `UPDATE entity SET deleted = TRUE, version = version + 1 WHERE id = $1`, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodePersistence, "soft delete entity")
	}
	return n > 0, nil
}

// Exists reports whether id refers to an entity. An empty expected type
// matches any type; deleted entities only count when includeDeleted is set.
func (r *Registry) Exists(ctx context.Context, id int64, expected Type, includeDeleted bool) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	e, err := r.Details(ctx, id)
	if err != nil || e == nil {
		return false, err
	}
	if expected != "" && e.Type != expected {
		return false, nil
	}
	if e.Deleted && !includeDeleted {
		return false, nil
	}
	return true, nil
}

// ActorExists checks that an acting user refers to a live entity.
func (r *Registry) ActorExists(ctx context.Context, id int64) (bool, error) {
	return r.Exists(ctx, id, "", false)
}

// Details reads one entity row, or nil if there is none.
func (r *Registry) Details(ctx context.Context, id int64) (*Entity, error) {
	row, err := r.exec.SelectOne(ctx,
		`SELECT id, type, subtype, version, deleted, locked, locked_by, locked_datetime FROM entity WHERE id = $1`, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "read entity")
	}
	if row == nil {
		return nil, nil
	}
	return fromRow(row), nil
}

// CreateXref links parent to child under transactionID. Both endpoints must
// currently exist; a missing endpoint is an integrity fault, not a response.
func (r *Registry) CreateXref(ctx context.Context, parentID, childID, transactionID int64) error {
	for _, id := range []int64{parentID, childID} {
		ok, err := r.Exists(ctx, id, "", false)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeReferential, fmt.Sprintf("xref endpoint %d does not exist", id))
		}
	}
	n, err := r.exec.Insert(ctx,
		`INSERT INTO entity_xref (parent_id, child_id, transaction_id) VALUES ($1, $2, $3)`,
		parentID, childID, transactionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "create xref")
	}
	if n == 0 {
		return dErrors.New(dErrors.CodePersistence, "create xref: no rows written")
	}
	return nil
}

// ParentOf returns the parent linked to childID.
func (r *Registry) ParentOf(ctx context.Context, childID int64) (int64, bool, error) {
	row, err := r.exec.SelectOne(ctx,
		`SELECT parent_id FROM entity_xref WHERE child_id = $1 ORDER BY transaction_id DESC LIMIT 1`, childID)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodePersistence, "read xref parent")
	}
	if row == nil {
		return 0, false, nil
	}
	return asInt(row["parent_id"]), true, nil
}

// Children lists the live children of parentID with the given type.
func (r *Registry) Children(ctx context.Context, parentID int64, typ Type) ([]Entity, error) {
	rows, err := r.exec.Select(ctx,
		`SELECT e.id, e.type, e.subtype, e.version, e.deleted, e.locked, e.locked_by, e.locked_datetime
		 FROM entity_xref x JOIN entity e ON e.id = x.child_id
		 WHERE x.parent_id = $1 AND e.type = $2 AND e.deleted = FALSE
		 ORDER BY e.id`, parentID, string(typ))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list children")
	}
	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, *fromRow(row))
	}
	return out, nil
}

func fromRow(row storage.Row) *Entity {
	e := &Entity{
		ID:       asInt(row["id"]),
		Type:     Type(asString(row["type"])),
		Subtype:  asString(row["subtype"]),
		Version:  asInt(row["version"]),
		Deleted:  asBool(row["deleted"]),
		Locked:   asBool(row["locked"]),
		LockedBy: asInt(row["locked_by"]),
	}
	if t, ok := row["locked_datetime"].(time.Time); ok {
		e.LockedDatetime = t
	}
	return e
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	default:
		return false
	}
}
