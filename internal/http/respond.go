package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/fjod/storefront/internal/backend"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	// Dismissible marks transient failures the shopper can close and retry.
	Dismissible bool              `json:"dismissible,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondValidation(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "some fields are missing or invalid",
		Code:   "validation_failed",
		Fields: fields,
	})
}

func respondUnavailable(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error:       message,
		Code:        "service_unavailable",
		Dismissible: true,
	})
}

// respondUnauthenticated sends the shopper to log in and come back to returnTo.
func respondUnauthenticated(w http.ResponseWriter, returnTo string) {
	respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    "please log in to continue",
		Code:     "unauthenticated",
		Redirect: loginRedirect(returnTo),
	})
}

func loginRedirect(returnTo string) string {
	if returnTo == "" {
		return "/account"
	}
	return "/account?redirect=" + url.QueryEscape(returnTo)
}

// handleBackendError maps backend client errors onto the gateway's error responses.
func handleBackendError(w http.ResponseWriter, r *http.Request, err error, returnTo string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, context.Canceled):
		// the shopper moved on; nobody reads this response
		w.WriteHeader(499)
	case errors.Is(err, context.DeadlineExceeded):
		respondJSON(w, http.StatusGatewayTimeout, ErrorResponse{
			Error:       "the request took too long, please try again",
			Code:        "timeout",
			Dismissible: true,
		})
	case errors.Is(err, backend.ErrUnauthorized):
		respondUnauthenticated(w, returnTo)
	case errors.Is(err, backend.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, backend.ErrUnavailable):
		respondUnavailable(w, "the store is temporarily unavailable, please try again")
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadRequest, "rejected", apiErr.Message)
	default:
		requestLogger(r).Error("unexpected backend error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
