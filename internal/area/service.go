package area

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sdep-gateway/internal/audit"
	"sdep-gateway/internal/party"
	"sdep-gateway/internal/platform/database"
	"sdep-gateway/internal/platform/metrics"
	"sdep-gateway/internal/platform/middleware"
	"sdep-gateway/internal/versioning"
	"sdep-gateway/pkg/domainerrors"
	"sdep-gateway/pkg/sentinel"
	"sdep-gateway/pkg/tx"
)

// CreateInput carries a validated area submission. AreaID may be empty, in
// which case a fresh UUID is assigned. AuthorityID and AuthorityName come
// from the caller's token, never from the request body.
type CreateInput struct {
	AreaID        string
	Name          string
	Filename      string
	Filedata      []byte
	AuthorityID   string
	AuthorityName string
}

// Service implements the area business rules on top of the versioned stores.
// Writes run inside a single transaction; any failure inside the versioning
// protocol rolls back every preceding step of the same request.
type Service struct {
	logger      *slog.Logger
	areas       *Store
	authorities *party.AuthorityStore
	uow         *tx.UnitOfWork
	metrics     *metrics.Metrics
	auditor     audit.Publisher
}

func NewService(
	areas *Store,
	authorities *party.AuthorityStore,
	uow *tx.UnitOfWork,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	auditor audit.Publisher,
) *Service {
	return &Service{
		logger:      logger,
		areas:       areas,
		authorities: authorities,
		uow:         uow,
		metrics:     metrics,
		auditor:     auditor,
	}
}

// Create submits one area. The caller's authority record is upserted first
// (every submission supersedes the current authority version), then the area
// itself goes through the versioning protocol, pinned to the authority
// version written in this same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Area, error) {
	var created Area

	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		authority, err := versioning.Upsert[party.CompetentAuthority](ctx, s.authorities, in.AuthorityID, party.CompetentAuthority{
			AuthorityID: in.AuthorityID,
			Name:        in.AuthorityName,
			CreatedAt:   now,
		}, now)
		if err != nil {
			if errors.Is(err, versioning.ErrDeactivated) {
				return domainerrors.Newf(domainerrors.CodeDeactivated,
					"CompetentAuthority '%s' has been deactivated", in.AuthorityID)
			}
			return wrapStoreError(err, "failed to resolve competent authority")
		}

		areaID := in.AreaID
		if areaID == "" {
			areaID = uuid.NewString()
		} else {
			if _, err := versioning.PrepareResubmission[Area](ctx, s.areas, areaID, now); err != nil {
				if errors.Is(err, versioning.ErrDeactivated) {
					return domainerrors.Newf(domainerrors.CodeDeactivated,
						"Area '%s' has been deactivated", areaID)
				}
				return wrapStoreError(err, "failed to version area")
			}
		}

		created, err = s.areas.Create(ctx, Area{
			AreaID:               areaID,
			Name:                 in.Name,
			AuthorityTechnicalID: authority.TechnicalID,
			Filename:             in.Filename,
			Filedata:             in.Filedata,
			CreatedAt:            now,
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerrors.Newf(domainerrors.CodeConflict,
					"Area '%s' already exists", areaID)
			}
			return wrapStoreError(err, "failed to create area")
		}
		return nil
	})
	if err != nil {
		return Area{}, wrapStoreError(err, "failed to submit area")
	}

	s.metrics.IncrementAreasSubmitted()
	s.auditor.Publish(ctx, audit.Event{
		Action:    audit.ActionAreaSubmitted,
		Actor:     in.AuthorityID,
		ActorName: in.AuthorityName,
		Subject:   created.AreaID,
		RequestID: middleware.GetRequestID(ctx),
		Timestamp: created.CreatedAt,
	})
	return created, nil
}

// Delete deactivates the authority's own current area version. Deactivation
// is terminal: the functional id cannot be resubmitted afterwards. Deleting
// an unknown, already-deleted, or foreign area yields a not-found error.
func (s *Service) Delete(ctx context.Context, areaID, authorityID string) error {
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		// A single ownership-scoped update: a concurrent delete that wins
		// the race leaves zero affected rows, which is the same not-found
		// outcome as deleting an unknown or foreign area.
		if err := s.areas.EndCurrentOwnedBy(ctx, areaID, authorityID, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return domainerrors.Newf(domainerrors.CodeNotFound, "Area '%s' not found", areaID)
			}
			return wrapStoreError(err, "failed to deactivate area")
		}
		return nil
	})
	if err != nil {
		return wrapStoreError(err, "failed to deactivate area")
	}

	s.metrics.IncrementAreasDeactivated()
	s.auditor.Publish(ctx, audit.Event{
		Action:    audit.ActionAreaDeactivated,
		Actor:     authorityID,
		Subject:   areaID,
		RequestID: middleware.GetRequestID(ctx),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// ListOwn returns the authority's own current areas.
func (s *Service) ListOwn(ctx context.Context, authorityID string, offset, limit int) ([]OwnListing, error) {
	listings, err := s.areas.ListByAuthority(ctx, authorityID, offset, limit)
	if err != nil {
		return nil, wrapStoreError(err, "failed to list areas")
	}
	return listings, nil
}

// CountOwn returns the number of the authority's own current areas.
func (s *Service) CountOwn(ctx context.Context, authorityID string) (int, error) {
	count, err := s.areas.CountByAuthority(ctx, authorityID)
	if err != nil {
		return 0, wrapStoreError(err, "failed to count areas")
	}
	return count, nil
}

// List returns all current areas in the member state with their owning
// authorities. Used by rental platforms to discover regulated areas.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Listing, error) {
	listings, err := s.areas.List(ctx, offset, limit)
	if err != nil {
		return nil, wrapStoreError(err, "failed to list areas")
	}
	return listings, nil
}

// Count returns the number of current areas in the member state.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.areas.Count(ctx)
	if err != nil {
		return 0, wrapStoreError(err, "failed to count areas")
	}
	return count, nil
}

// GetShapefile returns the current shapefile for any area in the member
// state. Used by rental platforms.
func (s *Service) GetShapefile(ctx context.Context, areaID string) (Shapefile, error) {
	a, err := s.areas.GetCurrent(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Shapefile{}, domainerrors.Newf(domainerrors.CodeNotFound,
				"Area with areaId '%s' not found", areaID)
		}
		return Shapefile{}, wrapStoreError(err, "failed to load area")
	}
	return Shapefile{Filename: a.Filename, Filedata: a.Filedata}, nil
}

// GetOwnShapefile returns the current shapefile for the authority's own
// area. Foreign or unknown areas yield a not-found error.
func (s *Service) GetOwnShapefile(ctx context.Context, areaID, authorityID string) (Shapefile, error) {
	a, err := s.areas.GetCurrentOwnedBy(ctx, areaID, authorityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Shapefile{}, domainerrors.Newf(domainerrors.CodeNotFound,
				"Area with areaId '%s' not found", areaID)
		}
		return Shapefile{}, wrapStoreError(err, "failed to load area")
	}
	return Shapefile{Filename: a.Filename, Filedata: a.Filedata}, nil
}

// wrapStoreError tags persistence failures. Domain errors pass through
// untouched; a lost database connection is a service-unavailable condition,
// anything else an internal error.
func wrapStoreError(err error, msg string) error {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) || database.IsConnectionFailure(err) {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "Database is temporarily unavailable")
	}
	return domainerrors.Wrap(err, domainerrors.CodeInternal, msg)
}
