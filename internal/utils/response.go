package utils

import (
	"encoding/json"
	"net/http"
)

type Payload struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ValidationError sends a 400 reply embedding field-level error lists.
func ValidationError(w http.ResponseWriter, errs map[string][]string) {
	JSONResponse(w, http.StatusBadRequest, Payload{
		Success: false,
		Message: "Invalid input",
		Errors:  errs,
	})
}

// NotFound sends the 404 envelope with a human-readable message.
func NotFound(w http.ResponseWriter, message string) {
	JSONResponse(w, http.StatusNotFound, Payload{
		Success: false,
		Message: message,
	})
}
