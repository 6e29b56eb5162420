// Package handler exposes the area endpoints: submission, listing, download
// and deactivation for competent authorities under /ca/areas, and the
// member-state-wide read surface for rental platforms under /str/areas.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sdep-gateway/internal/area"
	"sdep-gateway/internal/jwttoken"
	"sdep-gateway/internal/platform/middleware"
	"sdep-gateway/internal/transport/http/shared"
	dErrors "sdep-gateway/pkg/domainerrors"
)

// MaxFileSize bounds an uploaded shapefile to 1 MiB.
const MaxFileSize = 1 << 20

var functionalIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Service defines the area operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, in area.CreateInput) (area.Area, error)
	Delete(ctx context.Context, areaID, authorityID string) error
	ListOwn(ctx context.Context, authorityID string, offset, limit int) ([]area.OwnListing, error)
	CountOwn(ctx context.Context, authorityID string) (int, error)
	List(ctx context.Context, offset, limit int) ([]area.Listing, error)
	Count(ctx context.Context) (int, error)
	GetShapefile(ctx context.Context, areaID string) (area.Shapefile, error)
	GetOwnShapefile(ctx context.Context, areaID, authorityID string) (area.Shapefile, error)
}

// Handler handles area endpoints.
type Handler struct {
	logger       *slog.Logger
	areas        Service
	jwtValidator middleware.JWTValidator
}

func New(areas Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		areas:        areas,
		jwtValidator: jwtValidator,
	}
}

// Register registers the area routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Route("/ca/areas", func(r chi.Router) {
			write := middleware.RequireRoles(h.logger, jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite)
			read := middleware.RequireRoles(h.logger, jwttoken.RoleCompetentAuthority, jwttoken.RoleRead)

			r.With(write).Post("/", h.handlePostArea)
			r.With(read).Get("/", h.handleGetOwnAreas)
			r.With(read).Get("/count", h.handleCountOwnAreas)
			r.With(read).Get("/{areaId}", h.handleGetOwnArea)
			r.With(write).Delete("/{areaId}", h.handleDeleteArea)
		})

		r.Route("/str/areas", func(r chi.Router) {
			read := middleware.RequireRoles(h.logger, jwttoken.RolePlatform, jwttoken.RoleRead)

			r.With(read).Get("/", h.handleGetAreas)
			r.With(read).Get("/count", h.handleCountAreas)
			r.With(read).Get("/{areaId}", h.handleGetArea)
		})
	})
}

type areaOwnResponse struct {
	AreaID    string    `json:"areaId"`
	AreaName  string    `json:"areaName,omitempty"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

type areaOwnListResponse struct {
	Areas []areaOwnResponse `json:"areas"`
}

type areaResponse struct {
	AreaID        string    `json:"areaId"`
	AreaName      string    `json:"areaName,omitempty"`
	AuthorityID   string    `json:"competentAuthorityId"`
	AuthorityName string    `json:"competentAuthorityName,omitempty"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"createdAt"`
}

type areaListResponse struct {
	Areas []areaResponse `json:"areas"`
}

type countResponse struct {
	Count int `json:"count"`
}

// handlePostArea accepts a multipart shapefile submission for the
// authenticated competent authority.
func (h *Handler) handlePostArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)
	authorityName := middleware.GetClientName(ctx)

	if err := r.ParseMultipartForm(MaxFileSize + 4096); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "request must be multipart/form-data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	defer file.Close()

	if header.Size > MaxFileSize {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation,
			"File exceeds maximum size of 1 MiB (%d bytes). Received %d bytes.", MaxFileSize, header.Size))
		return
	}

	filedata, err := io.ReadAll(file)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read uploaded file",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to read uploaded file"))
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "unnamed"
	}

	areaID := r.FormValue("areaId")
	areaName := r.FormValue("areaName")

	if areaID != "" {
		if err := validation.Validate(areaID,
			validation.Length(1, 64),
			validation.Match(functionalIDPattern).
				Error("must match pattern ^[a-z0-9-]+$ (lowercase alphanumeric with hyphens)"),
		); err != nil {
			shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "areaId %s", err))
			return
		}
	}
	if err := validation.Validate(areaName, validation.Length(0, 64)); err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "areaName %s", err))
		return
	}

	created, err := h.areas.Create(ctx, area.CreateInput{
		AreaID:        areaID,
		Name:          areaName,
		Filename:      filename,
		Filedata:      filedata,
		AuthorityID:   authorityID,
		AuthorityName: authorityName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "area submission rejected",
			"error", err.Error(),
			"authority_id", authorityID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, areaOwnResponse{
		AreaID:    created.AreaID,
		AreaName:  created.Name,
		Filename:  created.Filename,
		CreatedAt: created.CreatedAt,
	})
}

func (h *Handler) handleGetOwnAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)

	offset, limit, err := shared.ParseOffsetLimit(r)
	if err != nil {
		shared.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	listings, err := h.areas.ListOwn(ctx, authorityID, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list own areas",
			"error", err.Error(),
			"authority_id", authorityID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	resp := areaOwnListResponse{Areas: make([]areaOwnResponse, 0, len(listings))}
	for _, l := range listings {
		resp.Areas = append(resp.Areas, areaOwnResponse{
			AreaID:    l.AreaID,
			AreaName:  l.Name,
			Filename:  l.Filename,
			CreatedAt: l.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCountOwnAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)

	count, err := h.areas.CountOwn(ctx, authorityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count own areas",
			"error", err.Error(),
			"authority_id", authorityID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, countResponse{Count: count})
}

func (h *Handler) handleGetOwnArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)
	areaID := chi.URLParam(r, "areaId")

	shape, err := h.areas.GetOwnShapefile(ctx, areaID, authorityID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeShapefile(w, shape)
}

func (h *Handler) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authorityID := middleware.GetClientID(ctx)
	areaID := chi.URLParam(r, "areaId")

	if err := validation.Validate(areaID,
		validation.Required,
		validation.Length(1, 64),
		validation.Match(functionalIDPattern).
			Error("must match pattern ^[a-z0-9-]+$ (lowercase alphanumeric with hyphens)"),
	); err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "areaId %s", err))
		return
	}

	if err := h.areas.Delete(ctx, areaID, authorityID); err != nil {
		h.logger.WarnContext(ctx, "area deactivation rejected",
			"error", err.Error(),
			"authority_id", authorityID,
			"area_id", areaID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, limit, err := shared.ParseOffsetLimit(r)
	if err != nil {
		shared.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	listings, err := h.areas.List(ctx, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list areas",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	resp := areaListResponse{Areas: make([]areaResponse, 0, len(listings))}
	for _, l := range listings {
		resp.Areas = append(resp.Areas, areaResponse{
			AreaID:        l.AreaID,
			AreaName:      l.Name,
			AuthorityID:   l.AuthorityID,
			AuthorityName: l.AuthorityName,
			Filename:      l.Filename,
			CreatedAt:     l.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCountAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.areas.Count(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count areas",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, countResponse{Count: count})
}

func (h *Handler) handleGetArea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	areaID := chi.URLParam(r, "areaId")

	shape, err := h.areas.GetShapefile(ctx, areaID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeShapefile(w, shape)
}

func writeShapefile(w http.ResponseWriter, shape area.Shapefile) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shape.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(shape.Filedata)
}
