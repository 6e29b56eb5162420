package shared

import (
	"net/http"
	"strconv"

	dErrors "sdep-gateway/pkg/domainerrors"
)

// ParseOffsetLimit reads the optional pagination query parameters. offset
// defaults to 0 and must be non-negative; limit defaults to 0 (unlimited)
// and must be within [1, 1000] when given.
func ParseOffsetLimit(r *http.Request) (offset, limit int, err error) {
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			return 0, 0, dErrors.New(dErrors.CodeValidation, "limit must be an integer between 1 and 1000")
		}
	}
	return offset, limit, nil
}
