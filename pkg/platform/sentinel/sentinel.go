package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrAlreadyUsed: a uniqueness guard rejected the write (duplicate key)
// - ErrConflict: record changed underneath the caller
//
// The Postgres stores map unique-constraint violations (SQLSTATE 23505) to
// ErrAlreadyUsed so the in-memory and database implementations are
// indistinguishable to the service layer.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
)
