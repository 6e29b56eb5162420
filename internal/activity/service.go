package activity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sdep-gateway/internal/area"
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

// CreateInput carries a validated activity submission. ActivityID may be
// empty, in which case a fresh UUID is assigned. PlatformID and PlatformName
// come from the caller's token, never from the request body.
type CreateInput struct {
	ActivityID         string
	Name               string
	AreaID             string
	URL                string
	Address            Address
	RegistrationNumber string
	NumberOfGuests     *int
	CountryOfGuests    []string
	Temporal           Temporal
	PlatformID         string
	PlatformName       string
}

// Service implements the activity business rules on top of the versioned
// stores. Writes run inside a single transaction: the area precondition, the
// platform upsert, and the activity versioning either all commit or none do.
type Service struct {
	logger      *slog.Logger
	activities  *Store
	areas       *area.Store
	platforms   *party.PlatformStore
	authorities *party.AuthorityStore
	uow         *tx.UnitOfWork
	metrics     *metrics.Metrics
	auditor     audit.Publisher
}

func NewService(
	activities *Store,
	areas *area.Store,
	platforms *party.PlatformStore,
	authorities *party.AuthorityStore,
	uow *tx.UnitOfWork,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	auditor audit.Publisher,
) *Service {
	return &Service{
		logger:      logger,
		activities:  activities,
		areas:       areas,
		platforms:   platforms,
		authorities: authorities,
		uow:         uow,
		metrics:     metrics,
		auditor:     auditor,
	}
}

// Create submits one activity. The referenced area must have a current
// version; the caller's platform record is then upserted, and the activity
// goes through the versioning protocol pinned to the area and platform rows
// resolved in this same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (OwnListing, error) {
	var result OwnListing

	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		target, err := s.areas.GetCurrent(ctx, in.AreaID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return domainerrors.Newf(domainerrors.CodeBusiness,
					"Area with areaId '%s' not found", in.AreaID)
			}
			return wrapStoreError(err, "failed to load area")
		}

		platform, err := versioning.Upsert[party.Platform](ctx, s.platforms, in.PlatformID, party.Platform{
			PlatformID: in.PlatformID,
			Name:       in.PlatformName,
			CreatedAt:  now,
		}, now)
		if err != nil {
			if errors.Is(err, versioning.ErrDeactivated) {
				return domainerrors.Newf(domainerrors.CodeDeactivated,
					"Platform '%s' has been deactivated", in.PlatformID)
			}
			return wrapStoreError(err, "failed to resolve platform")
		}

		activityID := in.ActivityID
		if activityID == "" {
			activityID = uuid.NewString()
		} else {
			if _, err := versioning.PrepareResubmission[Activity](ctx, s.activities, activityID, now); err != nil {
				if errors.Is(err, versioning.ErrDeactivated) {
					return domainerrors.Newf(domainerrors.CodeDeactivated,
						"Activity '%s' has been deactivated", activityID)
				}
				return wrapStoreError(err, "failed to version activity")
			}
		}

		created, err := s.activities.Create(ctx, Activity{
			ActivityID:          activityID,
			Name:                in.Name,
			PlatformTechnicalID: platform.TechnicalID,
			AreaTechnicalID:     target.TechnicalID,
			URL:                 in.URL,
			Address:             in.Address,
			RegistrationNumber:  in.RegistrationNumber,
			NumberOfGuests:      in.NumberOfGuests,
			CountryOfGuests:     in.CountryOfGuests,
			Temporal:            in.Temporal,
			CreatedAt:           now,
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerrors.Newf(domainerrors.CodeConflict,
					"Activity '%s' already exists", activityID)
			}
			return wrapStoreError(err, "failed to create activity")
		}

		authority, err := s.authorities.GetByTechnicalID(ctx, target.AuthorityTechnicalID)
		if err != nil {
			return wrapStoreError(err, "failed to load area authority")
		}

		result = OwnListing{
			ActivityID:         created.ActivityID,
			Name:               created.Name,
			AreaID:             target.AreaID,
			AuthorityID:        authority.AuthorityID,
			AuthorityName:      authority.Name,
			URL:                created.URL,
			Address:            created.Address,
			RegistrationNumber: created.RegistrationNumber,
			NumberOfGuests:     created.NumberOfGuests,
			CountryOfGuests:    created.CountryOfGuests,
			Temporal:           created.Temporal,
			CreatedAt:          created.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return OwnListing{}, wrapStoreError(err, "failed to submit activity")
	}

	s.metrics.IncrementActivitiesSubmitted()
	s.auditor.Publish(ctx, audit.Event{
		Action:    audit.ActionActivitySubmitted,
		Actor:     in.PlatformID,
		ActorName: in.PlatformName,
		Subject:   result.ActivityID,
		RequestID: middleware.GetRequestID(ctx),
		Timestamp: result.CreatedAt,
	})
	return result, nil
}

// ListByAuthority returns current activities reported against the
// authority's areas.
func (s *Service) ListByAuthority(ctx context.Context, authorityID string, offset, limit int) ([]AuthorityListing, error) {
	listings, err := s.activities.ListByAuthority(ctx, authorityID, offset, limit)
	if err != nil {
		return nil, wrapStoreError(err, "failed to list activities")
	}
	return listings, nil
}

// CountByAuthority returns the number of current activities reported against
// the authority's areas.
func (s *Service) CountByAuthority(ctx context.Context, authorityID string) (int, error) {
	count, err := s.activities.CountByAuthority(ctx, authorityID)
	if err != nil {
		return 0, wrapStoreError(err, "failed to count activities")
	}
	return count, nil
}

// ListOwn returns the platform's own current activities.
func (s *Service) ListOwn(ctx context.Context, platformID string, offset, limit int) ([]OwnListing, error) {
	listings, err := s.activities.ListByPlatform(ctx, platformID, offset, limit)
	if err != nil {
		return nil, wrapStoreError(err, "failed to list activities")
	}
	return listings, nil
}

// CountOwn returns the number of the platform's own current activities.
func (s *Service) CountOwn(ctx context.Context, platformID string) (int, error) {
	count, err := s.activities.CountByPlatform(ctx, platformID)
	if err != nil {
		return 0, wrapStoreError(err, "failed to count activities")
	}
	return count, nil
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
