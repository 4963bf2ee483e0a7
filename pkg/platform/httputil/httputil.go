// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "did-registry/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:   http.StatusBadRequest,
	dErrors.CodeValidation:   http.StatusBadRequest,
	dErrors.CodeUnauthorized: http.StatusUnauthorized,
	dErrors.CodeForbidden:    http.StatusForbidden,
	dErrors.CodeNotFound:     http.StatusNotFound,
	dErrors.CodeConflict:     http.StatusConflict,
	dErrors.CodeUnavailable:  http.StatusServiceUnavailable,
	dErrors.CodeInternal:     http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string   `json:"error"`
	Kind        string   `json:"error_kind,omitempty"`
	Description string   `json:"error_description,omitempty"`
	Fields      []string `json:"missing_fields,omitempty"`
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors keep their description server-side; everything else is
// client-correctable and gets the detail string.
func WriteError(w http.ResponseWriter, err error) {
	body := errorBody{Error: string(dErrors.CodeInternal)}
	status := http.StatusInternalServerError

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = ToHTTPStatus(de.Code)
		body.Error = string(de.Code)
		body.Kind = string(de.Kind)
		if de.Code != dErrors.CodeInternal {
			body.Description = de.Message
			body.Fields = de.Fields
		}
	}

	WriteJSON(w, status, body)
}
