package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdep-gateway/internal/activity"
	"sdep-gateway/internal/jwttoken"
)

type stubService struct {
	created  activity.CreateInput
	own      []activity.OwnListing
	listings []activity.AuthorityListing
	count    int
}

func (s *stubService) Create(_ context.Context, in activity.CreateInput) (activity.OwnListing, error) {
	s.created = in
	id := in.ActivityID
	if id == "" {
		id = "generated-id"
	}
	return activity.OwnListing{
		ActivityID:         id,
		Name:               in.Name,
		AreaID:             in.AreaID,
		AuthorityID:        "0363",
		AuthorityName:      "Amsterdam",
		URL:                in.URL,
		Address:            in.Address,
		RegistrationNumber: in.RegistrationNumber,
		NumberOfGuests:     in.NumberOfGuests,
		CountryOfGuests:    in.CountryOfGuests,
		Temporal:           in.Temporal,
		CreatedAt:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubService) ListByAuthority(context.Context, string, int, int) ([]activity.AuthorityListing, error) {
	return s.listings, nil
}

func (s *stubService) CountByAuthority(context.Context, string) (int, error) { return s.count, nil }

func (s *stubService) ListOwn(context.Context, string, int, int) ([]activity.OwnListing, error) {
	return s.own, nil
}

func (s *stubService) CountOwn(context.Context, string) (int, error) { return s.count, nil }

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
	token, err := jwtService.GenerateToken(clientID, "BookInn", roles, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

const validBody = `{
	"activityId": "stay-1",
	"areaId": "centrum",
	"url": "https://example.com/listing/1",
	"address": {
		"street": "Herengracht",
		"number": 12,
		"letter": "a",
		"postalCode": "1017BR",
		"city": "Amsterdam"
	},
	"registrationNumber": "REG-001",
	"numberOfGuests": 4,
	"countryOfGuests": ["NLD", "DEU"],
	"temporal": {
		"startDatetime": "2025-06-01T14:00:00Z",
		"endDatetime": "2025-06-08T10:00:00Z"
	}
}`

func postActivity(t *testing.T, router http.Handler, jwtService *jwttoken.JWTService, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/str/activities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleWrite))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostActivityCreated(t *testing.T) {
	svc := &stubService{}
	router, jwtService := newTestRouter(t, svc)

	rec := postActivity(t, router, jwtService, validBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stay-1", resp["activityId"])
	assert.Equal(t, "centrum", resp["areaId"])
	assert.Equal(t, "0363", resp["competentAuthorityId"])
	assert.Equal(t, "Amsterdam", resp["competentAuthorityName"])

	address, ok := resp["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1017BR", address["postalCode"])

	// Identity comes from the token, never from the body.
	assert.Equal(t, "bookinn", svc.created.PlatformID)
	assert.Equal(t, "BookInn", svc.created.PlatformName)
}

func TestPostActivityValidation(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	replace := func(old, new string) string {
		return strings.Replace(validBody, old, new, 1)
	}

	cases := []struct {
		name string
		body string
	}{
		{"missing area id", replace(`"areaId": "centrum",`, "")},
		{"uppercase activity id", replace(`"stay-1"`, `"Stay-1"`)},
		{"missing url", replace(`"url": "https://example.com/listing/1",`, "")},
		{"missing registration number", replace(`"registrationNumber": "REG-001",`, "")},
		{"zero guests", replace(`"numberOfGuests": 4`, `"numberOfGuests": 0`)},
		{"two letter country code", replace(`"NLD"`, `"NL"`)},
		{"lowercase country code", replace(`"NLD"`, `"nld"`)},
		{"start year before 2025", replace(`"2025-06-01T14:00:00Z"`, `"2024-06-01T14:00:00Z"`)},
		{"end before start", replace(`"2025-06-08T10:00:00Z"`, `"2025-05-01T10:00:00Z"`)},
		{"missing temporal", replace(`"temporal": {
		"startDatetime": "2025-06-01T14:00:00Z",
		"endDatetime": "2025-06-08T10:00:00Z"
	}`, `"temporal": {}`)},
		{"not json", "not json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postActivity(t, router, jwtService, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation_error")
		})
	}
}

func TestGetOwnActivitiesShape(t *testing.T) {
	guests := 4
	svc := &stubService{own: []activity.OwnListing{{
		ActivityID:         "stay-1",
		AreaID:             "centrum",
		AuthorityID:        "0363",
		AuthorityName:      "Amsterdam",
		URL:                "https://example.com/listing/1",
		Address:            activity.Address{Street: "Herengracht", Number: 12, PostalCode: "1017BR", City: "Amsterdam"},
		RegistrationNumber: "REG-001",
		NumberOfGuests:     &guests,
		Temporal: activity.Temporal{
			Start: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC),
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/str/activities", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Activities []map[string]any `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, "stay-1", resp.Activities[0]["activityId"])
	// activityName and countryOfGuests were never set and must be omitted.
	_, present := resp.Activities[0]["activityName"]
	assert.False(t, present)
	_, present = resp.Activities[0]["countryOfGuests"]
	assert.False(t, present)
}

func TestGetAuthorityActivitiesRequiresCARole(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/ca/activities", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "bookinn", jwttoken.RolePlatform, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCountAuthorityActivities(t *testing.T) {
	router, jwtService := newTestRouter(t, &stubService{count: 5})

	req := httptest.NewRequest(http.MethodGet, "/ca/activities/count", nil)
	req.Header.Set("Authorization", bearerFor(t, jwtService, "0363", jwttoken.RoleCompetentAuthority, jwttoken.RoleRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":5}`, rec.Body.String())
}
