package area

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdep-gateway/internal/audit"
	"sdep-gateway/internal/party"
	"sdep-gateway/internal/platform/database"
	"sdep-gateway/pkg/domainerrors"
	"sdep-gateway/pkg/tx"
)

func newTestService(t *testing.T) (*Service, *party.AuthorityStore) {
	t.Helper()

	db, dialect, err := database.Open("sqlite", filepath.Join(t.TempDir(), "sdep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Init(db, dialect))

	authorities := party.NewAuthorityStore(db, dialect)
	areas := NewStore(db, dialect)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(areas, authorities, tx.NewUnitOfWork(db), logger, nil, audit.Noop{})
	return svc, authorities
}

func submission(areaID string) CreateInput {
	return CreateInput{
		AreaID:        areaID,
		Name:          "Centrum",
		Filename:      "centrum.zip",
		Filedata:      []byte("shapefile bytes"),
		AuthorityID:   "0363",
		AuthorityName: "Amsterdam",
	}
}

func TestCreateGeneratesAreaID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, submission(""))
	require.NoError(t, err)
	assert.Len(t, first.AreaID, 36)

	second, err := svc.Create(ctx, submission(""))
	require.NoError(t, err)
	assert.Len(t, second.AreaID, 36)
	assert.NotEqual(t, first.AreaID, second.AreaID)

	count, err := svc.CountOwn(ctx, "0363")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCreateResubmissionSupersedes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)

	updated := submission("centrum")
	updated.Filename = "centrum-v2.zip"
	_, err = svc.Create(ctx, updated)
	require.NoError(t, err)

	listings, err := svc.ListOwn(ctx, "0363", 0, 0)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "centrum", listings[0].AreaID)
	assert.Equal(t, "centrum-v2.zip", listings[0].Filename)

	shapefile, err := svc.GetShapefile(ctx, "centrum")
	require.NoError(t, err)
	assert.Equal(t, "centrum-v2.zip", shapefile.Filename)
}

func TestCreatePinsAuthorityVersion(t *testing.T) {
	svc, authorities := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)

	renamed := submission("noord")
	renamed.AuthorityName = "Gemeente Amsterdam"
	_, err = svc.Create(ctx, renamed)
	require.NoError(t, err)

	// The second submission superseded the authority version, but the first
	// area stays pinned to the version it was submitted under.
	listings, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	byArea := map[string]Listing{}
	for _, l := range listings {
		byArea[l.AreaID] = l
	}
	assert.Equal(t, "Amsterdam", byArea["centrum"].AuthorityName)
	assert.Equal(t, "Gemeente Amsterdam", byArea["noord"].AuthorityName)

	current, err := authorities.GetCurrent(ctx, "0363")
	require.NoError(t, err)
	assert.Equal(t, "Gemeente Amsterdam", current.Name)
}

func TestDeleteEndsCurrentVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "centrum", "0363"))

	count, err := svc.CountOwn(ctx, "0363")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = svc.Delete(ctx, "centrum", "0363")
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
	assert.Equal(t, "Area 'centrum' not found", domainerrors.MessageOf(err))
}

func TestDeleteForeignAreaNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "centrum", "0518")
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestCreateRejectsDeactivatedArea(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "centrum", "0363"))

	_, err = svc.Create(ctx, submission("centrum"))
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeDeactivated, domainerrors.CodeOf(err))
	assert.Equal(t, "Area 'centrum' has been deactivated", domainerrors.MessageOf(err))
}

func TestGetShapefileUnknownArea(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetShapefile(ctx, "nowhere")
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
	assert.Equal(t, "Area with areaId 'nowhere' not found", domainerrors.MessageOf(err))
}

func TestDatabaseUnavailableSurfacedAsSuch(t *testing.T) {
	db, dialect, err := database.Open("sqlite", filepath.Join(t.TempDir(), "sdep.db"))
	require.NoError(t, err)
	require.NoError(t, database.Init(db, dialect))

	authorities := party.NewAuthorityStore(db, dialect)
	areas := NewStore(db, dialect)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(areas, authorities, tx.NewUnitOfWork(db), logger, nil, audit.Noop{})
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err = svc.Count(ctx)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeUnavailable, domainerrors.CodeOf(err))
	assert.Equal(t, "Database is temporarily unavailable", domainerrors.MessageOf(err))

	// The transactional write path loses the connection at BeginTx.
	_, err = svc.Create(ctx, submission("centrum"))
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeUnavailable, domainerrors.CodeOf(err))
}

func TestListScopedToAuthority(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, submission("centrum"))
	require.NoError(t, err)

	other := submission("binnenstad")
	other.AuthorityID = "0518"
	other.AuthorityName = "Den Haag"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	own, err := svc.ListOwn(ctx, "0363", 0, 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "centrum", own[0].AreaID)

	all, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all)
}
