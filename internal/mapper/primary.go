package mapper

import (
	"context"
	"fmt"

	"tranquility/internal/changefeed"
)

// clearPrimary demotes every other live primary row of k under parentID.
// Each demotion is a versioned change in its own right: snapshot, bump, then
// clear the flag under txID.
//
// Two concurrent writers can both find nothing to clear and both commit a
// primary row; a partial unique index on (parent, primary) would close that.
func (c *core) clearPrimary(ctx context.Context, k *kind, parentID, exceptID, txID int64) error {
	rows, err := c.exec.Select(ctx, fmt.Sprintf(
		`SELECT b.id FROM %s b JOIN entity e ON e.id = b.id JOIN entity_xref x ON x.child_id = b.id
		 WHERE x.parent_id = $1 AND e.deleted = FALSE AND b.primary_contact = TRUE AND b.id <> $2
		 ORDER BY b.id`, k.tables.Business), parentID, exceptID)
	if err != nil {
		return err
	}
	if len(rows) > 1 {
		c.logger.WarnContext(ctx, "multiple primary contacts found",
			"entity", k.name, "parent_id", parentID, "count", len(rows))
	}
	for _, row := range rows {
		id := toInt64(row["id"])
		if err := c.snapshotAndBump(ctx, k, id); err != nil {
			return err
		}
		if _, err := c.exec.Update(ctx, fmt.Sprintf(
			`UPDATE %s SET primary_contact = FALSE, transaction_id = $1 WHERE id = $2`, k.tables.Business),
			txID, id); err != nil {
			return err
		}
		if err := c.emit(ctx, k, changefeed.OpUpdate, id, txID); err != nil {
			return err
		}
	}
	return nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}
