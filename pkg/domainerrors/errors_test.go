package domainerrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"sdep-gateway/pkg/domainerrors"
)

func TestCodeOf(t *testing.T) {
	err := domainerrors.New(domainerrors.CodeNotFound, "Area 'a1' not found")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(wrapped))

	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(errors.New("boom")))
}

func TestMessageOf(t *testing.T) {
	err := domainerrors.Newf(domainerrors.CodeDeactivated, "Area '%s' has been deactivated", "a1")
	assert.Equal(t, "Area 'a1' has been deactivated", domainerrors.MessageOf(err))

	// Non-domain errors must not leak internals.
	assert.Equal(t, "internal server error", domainerrors.MessageOf(errors.New("pq: connection refused")))
}

func TestIs(t *testing.T) {
	err := domainerrors.Wrap(errors.New("unique violation"), domainerrors.CodeConflict, "duplicate submission")
	assert.True(t, domainerrors.Is(err, domainerrors.CodeConflict))
	assert.False(t, domainerrors.Is(err, domainerrors.CodeNotFound))
	assert.False(t, domainerrors.Is(errors.New("plain"), domainerrors.CodeConflict))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[domainerrors.Code]int{
		domainerrors.CodeValidation:   http.StatusUnprocessableEntity,
		domainerrors.CodeBusiness:     http.StatusUnprocessableEntity,
		domainerrors.CodeDeactivated:  http.StatusUnprocessableEntity,
		domainerrors.CodeNotFound:     http.StatusNotFound,
		domainerrors.CodeConflict:     http.StatusConflict,
		domainerrors.CodeUnauthorized: http.StatusUnauthorized,
		domainerrors.CodeForbidden:    http.StatusForbidden,
		domainerrors.CodeUnavailable:  http.StatusServiceUnavailable,
		domainerrors.CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, domainerrors.HTTPStatus(code), string(code))
	}
}
