// Package versioning implements the temporal record protocol shared by all
// registry entities. Records are append-only: a functional id maps to a chain
// of versions, at most one of which is current (ended_at unset). Updating a
// record means ending the current version and inserting a new one; the old
// versions stay queryable so past submissions remain attributable.
package versioning

import (
	"context"
	"errors"
	"time"

	"sdep-gateway/pkg/sentinel"
)

// ErrDeactivated is returned when a functional id has history but no current
// version. Deactivation is terminal: the id cannot be resubmitted. Callers
// wrap this with an entity-specific message.
var ErrDeactivated = errors.New("record has been deactivated")

// Store is the persistence contract the protocol drives. Implementations run
// inside the caller's transaction via the tx context.
type Store[T any] interface {
	// GetCurrent returns the current version for the functional id, or
	// sentinel.ErrNotFound when no current version exists.
	GetCurrent(ctx context.Context, functionalID string) (T, error)

	// ExistsAny reports whether any version, current or ended, exists for
	// the functional id.
	ExistsAny(ctx context.Context, functionalID string) (bool, error)

	// EndCurrent sets ended_at on the current version.
	EndCurrent(ctx context.Context, functionalID string, endedAt time.Time) error

	// Create inserts a new current version and returns it with its
	// store-assigned technical id.
	Create(ctx context.Context, record T) (T, error)
}

// Upsert resolves a submitted record against the stored chain for its
// functional id. A live current version is ended and the candidate inserted
// as its successor; an unknown id gets the candidate as its first version.
// Every resubmission under a live id supersedes the previous row rather than
// mutating it, so parent references pinned to the old row stay valid.
// A deactivated id is terminal and yields ErrDeactivated.
func Upsert[T any](ctx context.Context, store Store[T], functionalID string, candidate T, now time.Time) (T, error) {
	var zero T

	_, err := store.GetCurrent(ctx, functionalID)
	switch {
	case err == nil:
		if err := store.EndCurrent(ctx, functionalID, now); err != nil {
			return zero, err
		}
		return store.Create(ctx, candidate)

	case errors.Is(err, sentinel.ErrNotFound):
		exists, err := store.ExistsAny(ctx, functionalID)
		if err != nil {
			return zero, err
		}
		if exists {
			return zero, ErrDeactivated
		}
		return store.Create(ctx, candidate)

	default:
		return zero, err
	}
}

// PrepareResubmission ends the current version for a functional id ahead of
// inserting a replacement, so the one-current-version invariant holds within
// the surrounding transaction. Reports whether a previous version was ended.
// A deactivated id yields ErrDeactivated.
func PrepareResubmission[T any](ctx context.Context, store Store[T], functionalID string, now time.Time) (bool, error) {
	_, err := store.GetCurrent(ctx, functionalID)
	switch {
	case err == nil:
		if err := store.EndCurrent(ctx, functionalID, now); err != nil {
			return false, err
		}
		return true, nil

	case errors.Is(err, sentinel.ErrNotFound):
		exists, err := store.ExistsAny(ctx, functionalID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, ErrDeactivated
		}
		return false, nil

	default:
		return false, err
	}
}
