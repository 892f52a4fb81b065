// Package entity owns the shared identity row behind every business object:
// its type, version counter and soft-delete flag, plus the parent/child
// cross references and the history snapshots taken before each change.
package entity

import "time"

// Type is the business type recorded on an entity row.
type Type string

const (
	TypePerson  Type = "person"
	TypeAddress Type = "address"
	TypeUser    Type = "user"
)

// Entity is the shared identity, version and delete lifecycle row.
type Entity struct {
	ID             int64
	Type           Type
	Subtype        string
	Version        int64
	Deleted        bool
	Locked         bool
	LockedBy       int64
	LockedDatetime time.Time
}
