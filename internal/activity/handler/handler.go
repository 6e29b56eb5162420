// Package handler exposes the activity endpoints: submission and own-listing
// for rental platforms under /str/activities, and the oversight read surface
// for competent authorities under /ca/activities.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sdep-gateway/internal/activity"
	"sdep-gateway/internal/jwttoken"
	"sdep-gateway/internal/platform/middleware"
	"sdep-gateway/internal/transport/http/shared"
	dErrors "sdep-gateway/pkg/domainerrors"
)

var (
	functionalIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	postalCodePattern   = regexp.MustCompile(`^[0-9A-Za-z]+$`)
	countryCodePattern  = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Service defines the activity operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in activity.CreateInput) (activity.OwnListing, error)
	ListByAuthority(ctx context.Context, authorityID string, offset, limit int) ([]activity.AuthorityListing, error)
	CountByAuthority(ctx context.Context, authorityID string) (int, error)
	ListOwn(ctx context.Context, platformID string, offset, limit int) ([]activity.OwnListing, error)
	CountOwn(ctx context.Context, platformID string) (int, error)
}

// Handler handles activity endpoints.
type Handler struct {
	logger       *slog.Logger
	activities   Service
	jwtValidator middleware.JWTValidator
}

func New(activities Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		activities:   activities,
		jwtValidator: jwtValidator,
	}
}

// Register registers the activity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Route("/str/activities", func(r chi.Router) {
			write := middleware.RequireRoles(h.logger, jwttoken.RolePlatform, jwttoken.RoleWrite)
			read := middleware.RequireRoles(h.logger, jwttoken.RolePlatform, jwttoken.RoleRead)

			r.With(write).Post("/", h.handlePostActivity)
			r.With(read).Get("/", h.handleGetOwnActivities)
			r.With(read).Get("/count", h.handleCountOwnActivities)
		})

		r.Route("/ca/activities", func(r chi.Router) {
			read := middleware.RequireRoles(h.logger, jwttoken.RoleCompetentAuthority, jwttoken.RoleRead)

			r.With(read).Get("/", h.handleGetActivitiesByAuthority)
			r.With(read).Get("/count", h.handleCountActivitiesByAuthority)
		})
	})
}

// addressRequest is the address composite of a submission.
type addressRequest struct {
	Street     string `json:"street"`
	Number     int    `json:"number"`
	Letter     string `json:"letter"`
	Addition   string `json:"addition"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
}

func (a addressRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Street, validation.Required, validation.Length(1, 64)),
		validation.Field(&a.Number, validation.Required, validation.Min(1)),
		validation.Field(&a.Letter, validation.Length(0, 1)),
		validation.Field(&a.Addition, validation.Length(0, 10)),
		validation.Field(&a.PostalCode, validation.Required, validation.Length(1, 8),
			validation.Match(postalCodePattern).Error("must be alphanumeric")),
		validation.Field(&a.City, validation.Required, validation.Length(1, 64)),
	)
}

// temporalRequest is the rental period composite of a submission.
type temporalRequest struct {
	StartDatetime time.Time `json:"startDatetime"`
	EndDatetime   time.Time `json:"endDatetime"`
}

func (t temporalRequest) Validate() error {
	if t.StartDatetime.IsZero() || t.EndDatetime.IsZero() {
		return validation.NewError("validation_required", "startDatetime and endDatetime are required")
	}
	if t.StartDatetime.Year() < 2025 {
		return validation.NewError("validation_temporal_start", "Start datetime year must be >= 2025")
	}
	if !t.EndDatetime.After(t.StartDatetime) {
		return validation.NewError("validation_temporal_order", "End datetime must be after start datetime")
	}
	return nil
}

// activityRequest is the JSON body of POST /str/activities.
type activityRequest struct {
	ActivityID         string          `json:"activityId"`
	ActivityName       string          `json:"activityName"`
	AreaID             string          `json:"areaId"`
	URL                string          `json:"url"`
	Address            addressRequest  `json:"address"`
	RegistrationNumber string          `json:"registrationNumber"`
	NumberOfGuests     *int            `json:"numberOfGuests"`
	CountryOfGuests    []string        `json:"countryOfGuests"`
	Temporal           temporalRequest `json:"temporal"`
}

func (req activityRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ActivityID, validation.Length(1, 64),
			validation.Match(functionalIDPattern).
				Error("must match pattern ^[a-z0-9-]+$ (lowercase alphanumeric with hyphens)")),
		validation.Field(&req.ActivityName, validation.Length(0, 64)),
		validation.Field(&req.AreaID, validation.Required, validation.Length(1, 64),
			validation.Match(functionalIDPattern).
				Error("must match pattern ^[a-z0-9-]+$ (lowercase alphanumeric with hyphens)")),
		validation.Field(&req.URL, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.Address, validation.Required),
		validation.Field(&req.RegistrationNumber, validation.Required, validation.Length(1, 32)),
		validation.Field(&req.NumberOfGuests, validation.By(validateGuestCount)),
		validation.Field(&req.CountryOfGuests, validation.Length(1, 1024),
			validation.Each(validation.Match(countryCodePattern).
				Error("must be an ISO 3166-1 alpha-3 code (exactly 3 uppercase letters)"))),
		validation.Field(&req.Temporal, validation.Required),
	)
}

// validateGuestCount bounds an optional guest count. The built-in Min rule
// treats zero as absent, which would let an explicit 0 through.
func validateGuestCount(value interface{}) error {
	n, _ := value.(*int)
	if n == nil {
		return nil
	}
	if *n < 1 || *n > 1024 {
		return validation.NewError("validation_guest_count", "must be between 1 and 1024")
	}
	return nil
}

type addressResponse struct {
	Street     string `json:"street"`
	Number     int    `json:"number"`
	Letter     string `json:"letter,omitempty"`
	Addition   string `json:"addition,omitempty"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
}

type temporalResponse struct {
	StartDatetime time.Time `json:"startDatetime"`
	EndDatetime   time.Time `json:"endDatetime"`
}

// activityOwnResponse is the platform's view of one activity.
type activityOwnResponse struct {
	ActivityID         string           `json:"activityId"`
	ActivityName       string           `json:"activityName,omitempty"`
	AreaID             string           `json:"areaId"`
	AuthorityID        string           `json:"competentAuthorityId"`
	AuthorityName      string           `json:"competentAuthorityName,omitempty"`
	URL                string           `json:"url"`
	Address            addressResponse  `json:"address"`
	RegistrationNumber string           `json:"registrationNumber"`
	NumberOfGuests     *int             `json:"numberOfGuests,omitempty"`
	CountryOfGuests    []string         `json:"countryOfGuests,omitempty"`
	Temporal           temporalResponse `json:"temporal"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type activityOwnListResponse struct {
	Activities []activityOwnResponse `json:"activities"`
}

// activityResponse is the competent authority's view of one activity.
type activityResponse struct {
	ActivityID         string           `json:"activityId"`
	ActivityName       string           `json:"activityName,omitempty"`
	AreaID             string           `json:"areaId"`
	URL                string           `json:"url"`
	Address            addressResponse  `json:"address"`
	RegistrationNumber string           `json:"registrationNumber"`
	NumberOfGuests     *int             `json:"numberOfGuests,omitempty"`
	CountryOfGuests    []string         `json:"countryOfGuests,omitempty"`
	Temporal           temporalResponse `json:"temporal"`
	PlatformID         string           `json:"platformId"`
	PlatformName       string           `json:"platformName,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type activityListResponse struct {
	Activities []activityResponse `json:"activities"`
}

type countResponse struct {
	Count int `json:"count"`
}

// handlePostActivity accepts one activity submission for the authenticated
// rental platform.
func (h *Handler) handlePostActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := middleware.GetClientID(ctx)
	platformName := middleware.GetClientName(ctx)

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "%s", err))
		return
	}

	created, err := h.activities.Create(ctx, activity.CreateInput{
		ActivityID: req.ActivityID,
		Name:       req.ActivityName,
		AreaID:     req.AreaID,
		URL:        req.URL,
		Address: activity.Address{
			Street:     req.Address.Street,
			Number:     req.Address.Number,
			Letter:     req.Address.Letter,
			Addition:   req.Address.Addition,
			PostalCode: req.Address.PostalCode,
			City:       req.Address.City,
		},
		RegistrationNumber: req.RegistrationNumber,
		NumberOfGuests:     req.NumberOfGuests,
		CountryOfGuests:    req.CountryOfGuests,
		Temporal: activity.Temporal{
			Start: req.Temporal.StartDatetime,
			End:   req.Temporal.EndDatetime,
		},
		PlatformID:   platformID,
		PlatformName: platformName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "activity submission rejected",
			"error", err.Error(),
			"platform_id", platformID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toOwnResponse(created))
}

func (h *Handler) handleGetOwnActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := middleware.GetClientID(ctx)

	offset, limit, err := shared.ParseOffsetLimit(r)
	if err != nil {
		shared.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	listings, err := h.activities.ListOwn(ctx, platformID, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list own activities",
			"error", err.Error(),
			"platform_id", platformID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	resp := activityOwnListResponse{Activities: make([]activityOwnResponse, 0, len(listings))}
	for _, l := range listings {
		resp.Activities = append(resp.Activities, toOwnResponse(l))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCountOwnActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := middleware.GetClientID(ctx)

	count, err := h.activities.CountOwn(ctx, platformID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count own activities",
			"error", err.Error(),
			"platform_id", platformID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, countResponse{Count: count})
}

func (h *Handler) handleGetActivitiesByAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)

	offset, limit, err := shared.ParseOffsetLimit(r)
	if err != nil {
		shared.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	listings, err := h.activities.ListByAuthority(ctx, authorityID, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list activities for authority",
			"error", err.Error(),
			"authority_id", authorityID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	resp := activityListResponse{Activities: make([]activityResponse, 0, len(listings))}
	for _, l := range listings {
		resp.Activities = append(resp.Activities, activityResponse{
			ActivityID:         l.ActivityID,
			ActivityName:       l.Name,
			AreaID:             l.AreaID,
			URL:                l.URL,
			Address:            toAddressResponse(l.Address),
			RegistrationNumber: l.RegistrationNumber,
			NumberOfGuests:     l.NumberOfGuests,
			CountryOfGuests:    l.CountryOfGuests,
			Temporal:           temporalResponse{StartDatetime: l.Temporal.Start, EndDatetime: l.Temporal.End},
			PlatformID:         l.PlatformID,
			PlatformName:       l.PlatformName,
			CreatedAt:          l.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCountActivitiesByAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)

	count, err := h.activities.CountByAuthority(ctx, authorityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count activities for authority",
			"error", err.Error(),
			"authority_id", authorityID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, countResponse{Count: count})
}

func toOwnResponse(l activity.OwnListing) activityOwnResponse {
	return activityOwnResponse{
		ActivityID:         l.ActivityID,
		ActivityName:       l.Name,
		AreaID:             l.AreaID,
		AuthorityID:        l.AuthorityID,
		AuthorityName:      l.AuthorityName,
		URL:                l.URL,
		Address:            toAddressResponse(l.Address),
		RegistrationNumber: l.RegistrationNumber,
		NumberOfGuests:     l.NumberOfGuests,
		CountryOfGuests:    l.CountryOfGuests,
		Temporal:           temporalResponse{StartDatetime: l.Temporal.Start, EndDatetime: l.Temporal.End},
		CreatedAt:          l.CreatedAt,
	}
}

func toAddressResponse(a activity.Address) addressResponse {
	return addressResponse{
		Street:     a.Street,
		Number:     a.Number,
		Letter:     a.Letter,
		Addition:   a.Addition,
		PostalCode: a.PostalCode,
		City:       a.City,
	}
}
