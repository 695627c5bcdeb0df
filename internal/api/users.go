package api

import (
	"net/http"
	"strconv"

	"github.com/Roylkrishna/srg-sub001/internal/account"
)

// UsersHandler handles account administration endpoints.
type UsersHandler struct {
	Accounts *account.Service
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, usersResponse{Success: true, Users: users})
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.Accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, userResponse{Success: true, User: a})
}

// SetActive handles PUT /api/users/{id}/active.
func (h *UsersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil || req.IsActive == nil {
		jsonError(w, http.StatusBadRequest, "isActive required")
		return
	}

	a, err := h.Accounts.SetActive(r.Context(), actor(r), id, *req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, userResponse{Success: true, User: a})
}

// SetRole handles PUT /api/users/{id}/role.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "role required")
		return
	}

	a, err := h.Accounts.SetRole(r.Context(), actor(r), id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, userResponse{Success: true, User: a})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.DeleteAccount(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, messageResponse{Success: true, Message: "account deleted"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

// actor is only called behind RequireRole, so an identity is present.
func actor(r *http.Request) account.Actor {
	id := GetIdentity(r.Context())
	return account.Actor{ID: id.AccountID, Role: id.Role}
}
