package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Roylkrishna/srg-sub001/internal/account"
	"github.com/Roylkrishna/srg-sub001/internal/model"
)

type errorResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Field       string   `json:"field,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type userResponse struct {
	Success bool           `json:"success"`
	User    *model.Account `json:"user"`
}

type usersResponse struct {
	Success bool            `json:"success"`
	Users   []model.Account `json:"users"`
}

type sessionResponse struct {
	Success       bool           `json:"success"`
	Authenticated bool           `json:"authenticated"`
	Account       *model.Account `json:"account,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Message: message})
}

// writeError maps an account outcome to a status code. Anything unexpected
// is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *account.ConflictError
	switch {
	case errors.As(err, &conflict):
		jsonResponse(w, http.StatusConflict, errorResponse{
			Message:     conflict.Field + " already taken",
			Field:       conflict.Field,
			Suggestions: conflict.Suggestions,
		})
	case errors.Is(err, account.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrCaptchaFailed):
		jsonError(w, http.StatusBadRequest, "captcha verification failed")
	case errors.Is(err, account.ErrNotFound):
		jsonError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrAccountDisabled):
		jsonError(w, http.StatusForbidden, "account is disabled, contact an administrator")
	case errors.Is(err, account.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, account.ErrForbidden):
		jsonError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
