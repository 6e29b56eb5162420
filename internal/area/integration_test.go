//go:build integration

package area_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdep-gateway/internal/activity"
	"sdep-gateway/internal/area"
	"sdep-gateway/internal/audit"
	"sdep-gateway/internal/party"
	"sdep-gateway/internal/platform/database"
	"sdep-gateway/pkg/testutil/containers"
	"sdep-gateway/pkg/tx"
)

func TestPostgresVersioning(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()

	dialect := database.DialectPostgres
	authorities := party.NewAuthorityStore(pc.DB, dialect)
	platforms := party.NewPlatformStore(pc.DB, dialect)
	areaStore := area.NewStore(pc.DB, dialect)
	activityStore := activity.NewStore(pc.DB, dialect)
	uow := tx.NewUnitOfWork(pc.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	areas := area.NewService(areaStore, authorities, uow, logger, nil, audit.Noop{})
	activities := activity.NewService(activityStore, areaStore, platforms, authorities, uow, logger, nil, audit.Noop{})

	submit := func(areaID string) error {
		_, err := areas.Create(ctx, area.CreateInput{
			AreaID:        areaID,
			Filename:      "centrum.zip",
			Filedata:      []byte("shapefile bytes"),
			AuthorityID:   "0363",
			AuthorityName: "Amsterdam",
		})
		return err
	}

	t.Run("concurrent resubmission keeps one current version", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		require.NoError(t, submit("centrum"))

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- submit("centrum")
			}()
		}
		wg.Wait()
		close(errs)

		// Losers of the race hit the partial unique index and roll back;
		// the invariant is a single current row regardless of outcome.
		for err := range errs {
			if err != nil {
				t.Logf("concurrent submission rejected: %v", err)
			}
		}

		var current int
		require.NoError(t, pc.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM area WHERE area_id = $1 AND ended_at IS NULL", "centrum").Scan(&current))
		assert.Equal(t, 1, current)
	})

	t.Run("country array and temporal columns round trip", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		require.NoError(t, submit("centrum"))

		guests := 2
		created, err := activities.Create(ctx, activity.CreateInput{
			AreaID: "centrum",
			URL:    "https://example.com/listing/1",
			Address: activity.Address{
				Street:     "Herengracht",
				Number:     12,
				PostalCode: "1017BR",
				City:       "Amsterdam",
			},
			RegistrationNumber: "REG-001",
			NumberOfGuests:     &guests,
			CountryOfGuests:    []string{"NLD", "BEL", "DEU"},
			Temporal: activity.Temporal{
				Start: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC),
			},
			PlatformID:   "bookinn",
			PlatformName: "BookInn",
		})
		require.NoError(t, err)

		stored, err := activityStore.GetCurrent(ctx, created.ActivityID)
		require.NoError(t, err)
		assert.Equal(t, []string{"NLD", "BEL", "DEU"}, stored.CountryOfGuests)
		assert.True(t, stored.Temporal.Start.Equal(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)))
	})

	t.Run("history survives many versions", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		for i := 0; i < 10; i++ {
			require.NoError(t, submit(fmt.Sprintf("area-%d", i%2)))
		}

		count, err := areas.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		var versions int
		require.NoError(t, pc.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM area").Scan(&versions))
		assert.Equal(t, 10, versions)
	})
}
