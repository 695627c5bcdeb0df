package api

import (
	"log/slog"
	"net/http"

	"github.com/Roylkrishna/srg-sub001/internal/account"
	"github.com/Roylkrishna/srg-sub001/internal/captcha"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Accounts   *account.Service
	Challenges *captcha.Generator
	cookies    cookieJar
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Captcha handles GET /api/auth/captcha.
func (h *AuthHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	ch, cookie, err := h.Challenges.Create()
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setCaptcha(w, cookie)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(ch.Image); err != nil {
		slog.Error("error writing captcha image", "error", err)
	}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req account.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.Accounts.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setToken(w, sess.Token)
	jsonResponse(w, http.StatusCreated, userResponse{Success: true, User: sess.Account})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// A challenge is good for one attempt, whatever happens next.
	challenge := cookieValue(r, CaptchaCookie)
	h.cookies.clear(w, CaptchaCookie)

	var req account.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CaptchaCookie = challenge

	sess, err := h.Accounts.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.setToken(w, sess.Token)
	jsonResponse(w, http.StatusOK, userResponse{Success: true, User: sess.Account})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	if sess.State != Authenticated {
		jsonResponse(w, http.StatusOK, sessionResponse{Success: true})
		return
	}

	a, err := h.Accounts.CheckSession(r.Context(), sess.Identity.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil {
		h.cookies.clear(w, TokenCookie)
		jsonResponse(w, http.StatusOK, sessionResponse{Success: true})
		return
	}

	jsonResponse(w, http.StatusOK, sessionResponse{Success: true, Authenticated: true, Account: a})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w, TokenCookie)
	jsonResponse(w, http.StatusOK, messageResponse{Success: true, Message: "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	if id == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Accounts.ChangePassword(r.Context(), id.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, messageResponse{Success: true, Message: "password updated"})
}
