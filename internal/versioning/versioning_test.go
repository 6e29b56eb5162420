package versioning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdep-gateway/pkg/sentinel"
)

type fakeRecord struct {
	FunctionalID string
	Name         string
	EndedAt      *time.Time
}

// memoryStore keeps version chains per functional id, newest last.
type memoryStore struct {
	chains map[string][]fakeRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{chains: make(map[string][]fakeRecord)}
}

func (s *memoryStore) GetCurrent(_ context.Context, functionalID string) (fakeRecord, error) {
	for _, rec := range s.chains[functionalID] {
		if rec.EndedAt == nil {
			return rec, nil
		}
	}
	return fakeRecord{}, sentinel.ErrNotFound
}

func (s *memoryStore) ExistsAny(_ context.Context, functionalID string) (bool, error) {
	return len(s.chains[functionalID]) > 0, nil
}

func (s *memoryStore) EndCurrent(_ context.Context, functionalID string, endedAt time.Time) error {
	chain := s.chains[functionalID]
	for i := range chain {
		if chain[i].EndedAt == nil {
			chain[i].EndedAt = &endedAt
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *memoryStore) Create(_ context.Context, record fakeRecord) (fakeRecord, error) {
	s.chains[record.FunctionalID] = append(s.chains[record.FunctionalID], record)
	return record, nil
}

func (s *memoryStore) versions(functionalID string) int {
	return len(s.chains[functionalID])
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates when id is unknown", func(t *testing.T) {
		store := newMemoryStore()
		candidate := fakeRecord{FunctionalID: "0363", Name: "Amsterdam"}

		got, err := Upsert[fakeRecord](ctx, store, "0363", candidate, now)

		require.NoError(t, err)
		assert.Equal(t, "Amsterdam", got.Name)
		assert.Equal(t, 1, store.versions("0363"))
	})

	t.Run("supersedes the current version on resubmission", func(t *testing.T) {
		store := newMemoryStore()
		_, err := store.Create(ctx, fakeRecord{FunctionalID: "0363", Name: "Amsterdam"})
		require.NoError(t, err)
		candidate := fakeRecord{FunctionalID: "0363", Name: "Gemeente Amsterdam"}

		got, err := Upsert[fakeRecord](ctx, store, "0363", candidate, now)

		require.NoError(t, err)
		assert.Equal(t, "Gemeente Amsterdam", got.Name)
		require.Equal(t, 2, store.versions("0363"))

		// Exactly one current version remains.
		current, err := store.GetCurrent(ctx, "0363")
		require.NoError(t, err)
		assert.Equal(t, "Gemeente Amsterdam", current.Name)
		assert.Equal(t, now, *store.chains["0363"][0].EndedAt)
	})

	t.Run("rejects a deactivated id", func(t *testing.T) {
		store := newMemoryStore()
		_, err := store.Create(ctx, fakeRecord{FunctionalID: "0363", Name: "Amsterdam"})
		require.NoError(t, err)
		require.NoError(t, store.EndCurrent(ctx, "0363", now))

		_, err = Upsert[fakeRecord](ctx, store, "0363", fakeRecord{FunctionalID: "0363", Name: "Amsterdam"}, now)

		assert.ErrorIs(t, err, ErrDeactivated)
		assert.Equal(t, 1, store.versions("0363"))
	})
}

func TestPrepareResubmission(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fresh id needs no ending", func(t *testing.T) {
		store := newMemoryStore()

		replaced, err := PrepareResubmission[fakeRecord](ctx, store, "area-1", now)

		require.NoError(t, err)
		assert.False(t, replaced)
	})

	t.Run("ends the current version", func(t *testing.T) {
		store := newMemoryStore()
		_, err := store.Create(ctx, fakeRecord{FunctionalID: "area-1", Name: "v1"})
		require.NoError(t, err)

		replaced, err := PrepareResubmission[fakeRecord](ctx, store, "area-1", now)

		require.NoError(t, err)
		assert.True(t, replaced)
		_, err = store.GetCurrent(ctx, "area-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("rejects a deactivated id", func(t *testing.T) {
		store := newMemoryStore()
		_, err := store.Create(ctx, fakeRecord{FunctionalID: "area-1", Name: "v1"})
		require.NoError(t, err)
		require.NoError(t, store.EndCurrent(ctx, "area-1", now))

		_, err = PrepareResubmission[fakeRecord](ctx, store, "area-1", now)

		assert.ErrorIs(t, err, ErrDeactivated)
	})
}
