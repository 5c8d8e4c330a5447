package api

import (
	"encoding/json"
	"net/http"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/cmd/storefront/validation"
)

type successResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
}

type errorResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  *validation.Errors `json:"errors,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, message string, data any) {
	respondWithJSON(w, status, successResponse{Success: true, Message: message, Data: data})
}

func respondPage(w http.ResponseWriter, data any, pagination query.Pagination) {
	respondWithJSON(w, http.StatusOK, successResponse{Success: true, Data: data, Pagination: &pagination})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, errorResponse{Message: message})
}

// respondValidation writes a 422. An empty message uses the errors' summary.
func respondValidation(w http.ResponseWriter, errs *validation.Errors, message string) {
	if message == "" {
		message = errs.Error()
	}
	respondWithJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: message, Errors: errs})
}
