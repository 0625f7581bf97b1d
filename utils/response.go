package utils

import (
	"encoding/json"
	"net/http"

	"trailhead/apperr"
	"trailhead/globals"
)

type M map[string]any

// ErrorRecorder is implemented by response writers that log the error behind a
// response.
type ErrorRecorder interface {
	RecordError(err error)
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"status": code, "message": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithAppError maps a service error onto its HTTP status. Raw causes are never
// written; the stack is included only when globals.ExposeErrorStack is set.
func RespondWithAppError(w http.ResponseWriter, err error) {
	if rec, ok := w.(ErrorRecorder); ok {
		rec.RecordError(err)
	}
	kind := apperr.KindOf(err)
	code := apperr.HTTPStatus(kind)
	body := M{
		"status":  code,
		"message": apperr.PublicMessage(err),
	}
	if globals.ExposeErrorStack {
		body["stack"] = apperr.StackOf(err)
	}
	RespondWithJSON(w, code, body)
}

// DecodeJSON reads a JSON request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validation("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}
