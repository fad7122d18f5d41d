package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledenbeheer/internal/domain/compliance"
	policyDomain "ledenbeheer/internal/domain/policy"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON error envelope.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *compliance.ValidationError
		pe *policyDomain.PolicyError
		nf *compliance.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Description: ve.Error()})
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_policy", Description: pe.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Description: nf.Error()})
	default:
		internalError(w, err)
	}
}

// internalError logs the real error and returns a generic 500.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Description: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &compliance.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
