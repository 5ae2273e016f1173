// Package httputil centralizes JSON response and error envelope writing so
// handlers stay consistent across the service.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "shopcart/pkg/domain-errors"
)

// WriteJSON serializes v with the given status. Encoding failures after the
// header is written cannot be reported to the client; they are dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into the standard JSON error envelope.
// Internal errors keep their description out of the response body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{
		"error": string(code),
	}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
