package respond

import (
	"encoding/json"
	"net/http"

	"github.com/fleetguard/fleetguard/core/model"
)

// Problem is the machine-readable error envelope every failing response
// carries, wrapped as {"error": {...}}. Kind is stable; Message is for
// humans and never exposes internals.
type Problem struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type errorBody struct {
	Error Problem `json:"error"`
}

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a Problem envelope with the given status.
func Error(w http.ResponseWriter, status int, p Problem) {
	JSON(w, status, errorBody{Error: p})
}

// Validation writes a 400 carrying the structured validation error.
func Validation(w http.ResponseWriter, verr *model.ValidationError) {
	Error(w, http.StatusBadRequest, Problem{
		Kind:    string(verr.Kind),
		Field:   verr.Field,
		Message: verr.Message,
	})
}

// Storage writes the opaque persistence failure. Details stay in the logs.
func Storage(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, Problem{
		Kind:    "StorageUnavailable",
		Message: "storage temporarily unavailable",
	})
}

// NotFound writes a 404 envelope.
func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, Problem{Kind: "NotFound", Message: msg})
}
