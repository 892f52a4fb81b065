// Package projection maps stored rows onto API-facing field sets.
package projection

import (
	"time"

	"tranquility/internal/response"
	"tranquility/internal/storage"
)

// DatetimeLayout is the wire format for every datetime field.
const DatetimeLayout = "2006-01-02 15:04:05"

// Field binds an API key to a source column.
type Field struct {
	Key    string
	Column string
}

// FieldSet is an ordered list of fields.
type FieldSet []Field

// Keys returns the API keys in order.
func (fs FieldSet) Keys() []string {
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.Key
	}
	return keys
}

// Lookup finds a field by API key.
func (fs FieldSet) Lookup(key string) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// AuditTrail is appended to a default set to form the verbose set.
var AuditTrail = FieldSet{
	{Key: "version", Column: "version"},
	{Key: "transactionId", Column: "transaction_id"},
	{Key: "transactionSource", Column: "transaction_source"},
	{Key: "updateBy", Column: "update_by"},
	{Key: "updateDatetime", Column: "update_datetime"},
	{Key: "updateReason", Column: "update_reason"},
}

// Verbose returns set followed by the audit-trail fields.
func Verbose(set FieldSet) FieldSet {
	out := make(FieldSet, 0, len(set)+len(AuditTrail))
	out = append(out, set...)
	return append(out, AuditTrail...)
}

// Selection is what a caller asked to see.
type Selection struct {
	Verbose bool
	// Custom overrides both the default and verbose sets when non-empty.
	Custom FieldSet
}

// Resolve picks the field set for sel given the type's default set.
func Resolve(def FieldSet, sel Selection) FieldSet {
	switch {
	case len(sel.Custom) > 0:
		return sel.Custom
	case sel.Verbose:
		return Verbose(def)
	default:
		return def
	}
}

// Pick builds a custom set from API keys known to the verbose form of def.
// Unknown keys still project, to a null value.
func Pick(def FieldSet, keys ...string) FieldSet {
	all := Verbose(def)
	out := make(FieldSet, 0, len(keys))
	for _, k := range keys {
		if f, ok := all.Lookup(k); ok {
			out = append(out, f)
			continue
		}
		out = append(out, Field{Key: k, Column: k})
	}
	return out
}

// Transform projects rows onto the resolved field set. Columns missing from
// a row project to nil.
func Transform(rows []storage.Row, def FieldSet, sel Selection) []response.Record {
	set := Resolve(def, sel)
	out := make([]response.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(response.Record, len(set))
		for _, f := range set {
			rec[f.Key] = value(row[f.Column])
		}
		out = append(out, rec)
	}
	return out
}

func value(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(DatetimeLayout)
	}
	return v
}
