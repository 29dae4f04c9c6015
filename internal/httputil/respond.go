// Package httputil provides JSON request/response helpers for the HTTP API.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cwmia/gateway/internal/errors"
)

// maxBodyBytes caps inbound request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON shape of every error the API returns.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteError maps err to its HTTP status and writes the error body.
// Unrecognized errors surface as a generic 500 without internals.
func WriteError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("internal error", err)
	}
	WriteJSON(w, se.HTTPStatus, ErrorResponse{
		Error:   se.Message,
		Code:    string(se.Code),
		Details: se.Details,
	})
}

// DecodeJSON decodes a request body into target, enforcing the size cap.
func DecodeJSON(body io.Reader, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return errors.InvalidRequest("invalid JSON body")
	}
	return nil
}
