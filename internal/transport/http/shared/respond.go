// Package shared holds the JSON response helpers used by all handlers, so
// every endpoint emits the same error envelope.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "sdep-gateway/pkg/domainerrors"
)

// ErrorDetail is one entry of the error envelope.
type ErrorDetail struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ErrorResponse is the wire shape of every error the gateway returns.
type ErrorResponse struct {
	Detail []ErrorDetail `json:"detail"`
}

// WriteJSON writes v with the given status. Encoding failures are silently
// dropped; headers are already on the wire at that point.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the error envelope, mapping its
// code to an HTTP status. Non-domain errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, dErrors.HTTPStatus(dErrors.CodeOf(err)), err)
}

// WriteErrorStatus writes the error envelope with an explicit status.
// Invalid query parameters on read endpoints use 400 where the same
// validation failure on a write body uses 422.
func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, ErrorResponse{
		Detail: []ErrorDetail{{
			Msg:  dErrors.MessageOf(err),
			Type: string(dErrors.CodeOf(err)),
		}},
	})
}
