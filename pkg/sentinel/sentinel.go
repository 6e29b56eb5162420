package sentinel

import "errors"

// Sentinel errors for store-layer facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about rows, not validation failures:
// - ErrNotFound: no row matches (for versioned entities: no current row)
// - ErrConflict: a unique constraint rejected the write
// - ErrUnavailable: the underlying store is unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
