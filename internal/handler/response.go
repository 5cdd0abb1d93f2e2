package handler

import (
	"encoding/json"
	"log"
	"net/http"
)

// envelope is the uniform response wrapper used by every endpoint.
// Success: {success: true, data, count?, total?, page?, pages?, message?}
// Failure: {success: false, message, errors?, error?}
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Count   *int     `json:"count,omitempty"`
	Total   *int64   `json:"total,omitempty"`
	Page    *int     `json:"page,omitempty"`
	Pages   *int     `json:"pages,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func respondList(w http.ResponseWriter, count int, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count, Data: data})
}

func respondNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: message})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: message})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message})
}

func respondValidation(w http.ResponseWriter, errs []string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Message: "Validation Error",
		Errors:  errs,
	})
}

func respondServerError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Server Error",
		Error:   err.Error(),
	})
}
