package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Storage and collaborator layers
// return these (optionally wrapped) so mappers can translate them into
// response messages or domain errors.
//
//   - ErrNotFound: the row or entity does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrNoRowsAffected: a write matched nothing, the record vanished mid-transaction
//   - ErrUnavailable: an external collaborator cannot be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrUnavailable    = errors.New("unavailable")
)
