package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdep-gateway/internal/area"
	"sdep-gateway/internal/jwttoken"
	dErrors "sdep-gateway/pkg/domainerrors"
)

type stubService struct {
	created    area.CreateInput
	deleted    string
	listings   []area.Listing
	own        []area.OwnListing
	count      int
	shapefile  area.Shapefile
	failCreate error
}

func (s *stubService) Create(_ context.Context, in area.CreateInput) (area.Area, error) {
	if s.failCreate != nil {
		return area.Area{}, s.failCreate
	}
	s.created = in
	id := in.AreaID
	if id == "" {
		id = "generated-id"
	}
	return area.Area{
		AreaID:    id,
		Name:      in.Name,
		Filename:  in.Filename,
		Filedata:  in.Filedata,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubService) Delete(_ context.Context, areaID, _ string) error {
	s.deleted = areaID
	return nil
}

func (s *stubService) ListOwn(context.Context, string, int, int) ([]area.OwnListing, error) {
	return s.own, nil
}

func (s *stubService) CountOwn(context.Context, string) (int, error) { return s.count, nil }

func (s *stubService) List(context.Context, int, int) ([]area.Listing, error) {
	return s.listings, nil
}

func (s *stubService) Count(context.Context) (int, error) { return s.count, nil }

func (s *stubService) GetShapefile(context.Context, string) (area.Shapefile, error) {
	return s.shapefile, nil
}

func (s *stubService) GetOwnShapefile(context.Context, string, string) (area.Shapefile, error) {
	return s.shapefile, nil
}

func newTestRouter(t *testing.T, svc Service) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	jwtService := jwttoken.NewJWTService("test-signing-key", "sdep", "sdep-gateway")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger, jwtService).Register(r)
	return r, jwtService
}

func bearerFor(t *testing.T, jwtService *jwttoken.JWTService, clientID string, roles ...string) string {
	t.Helper()
	token, err := jwtService.GenerateToken(clientID, "Test Caller", roles, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func multipartBody(t *testing.T, fields map[string]string, filename string, filedata []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(filedata)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestPostAreaRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":[{"msg":"Not authenticated","type":"authentication_error"}]}`, rec.Body.String())
}

func TestPostAreaRequiresWriteRole(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail":[{"msg":"Not enough permissions","type":"authorization_error"}]}`, rec.Body.String())
}

func TestPostAreaCreated(t *testing.T) {
	svc := &stubService{}
	router, jwtService := newTestRouter(t, svc)

	body, contentType := multipartBody(t, map[string]string{
		"areaId":   "centrum",
		"areaName": "Centrum",
	}, "centrum.zip", []byte("shapefile bytes"))

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "centrum", resp["areaId"])
	assert.Equal(t, "Centrum", resp["areaName"])
	assert.Equal(t, "centrum.zip", resp["filename"])

	assert.Equal(t, "0363", svc.created.AuthorityID)
	assert.Equal(t, "Test Caller", svc.created.AuthorityName)
	assert.Equal(t, []byte("shapefile bytes"), svc.created.Filedata)
}

func TestPostAreaRejectsInvalidAreaID(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	body, contentType := multipartBody(t, map[string]string{"areaId": "Centrum!"}, "centrum.zip", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestPostAreaRejectsOversizedFile(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	oversized := bytes.Repeat([]byte("a"), MaxFileSize+1)
	body, contentType := multipartBody(t, map[string]string{"areaId": "centrum"}, "centrum.zip", oversized)

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "File exceeds maximum size of 1 MiB (1048576 bytes).")
}

func TestDeleteAreaNoContent(t *testing.T) {
	svc := &stubService{}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/ca/areas/centrum", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "centrum", svc.deleted)
}

func TestGetAreasListShape(t *testing.T) {
	svc := &stubService{listings: []area.Listing{{
		AreaID:        "centrum",
		AuthorityID:   "0363",
		AuthorityName: "Amsterdam",
		Filename:      "centrum.zip",
		CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/str/areas", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Areas []map[string]any `json:"areas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Areas, 1)
	assert.Equal(t, "centrum", resp.Areas[0]["areaId"])
	assert.Equal(t, "0363", resp.Areas[0]["competentAuthorityId"])
	// areaName was never set and must be omitted, not null.
	_, present := resp.Areas[0]["areaName"]
	assert.False(t, present)
}

func TestGetAreasRejectsBadOffset(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/str/areas?offset=-1", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountAreas(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{count: 7})

	req := httptest.NewRequest(http.MethodGet, "/str/areas/count", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":7}`, rec.Body.String())
}

func TestGetShapefileDownload(t *testing.T) {
	svc := &stubService{shapefile: area.Shapefile{Filename: "centrum.zip", Filedata: []byte("shapefile bytes")}}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/str/areas/centrum", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="centrum.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "shapefile bytes", rec.Body.String())
}

func TestDomainErrorMappedToStatus(t *testing.T) {
	svc := &stubService{failCreate: dErrors.Newf(dErrors.CodeDeactivated, "Area 'centrum' has been deactivated")}
	router, jwtService := newTestRouter(t, svc)

	body, contentType := multipartBody(t, map[string]string{"areaId": "centrum"}, "centrum.zip", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/ca/areas", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"msg":"Area 'centrum' has been deactivated","type":"deactivated_error"}]}`, rec.Body.String())
}
