package api

import (
	"net/http"

	"github.com/Roylkrishna/srg-sub001/internal/account"
	"github.com/Roylkrishna/srg-sub001/internal/auth"
	"github.com/Roylkrishna/srg-sub001/internal/captcha"
	"github.com/Roylkrishna/srg-sub001/internal/db"
	"github.com/Roylkrishna/srg-sub001/internal/model"
)

// Config holds the router's collaborators.
type Config struct {
	DB         *db.DB
	Accounts   *account.Service
	Tokens     *auth.Tokens
	Captcha    *captcha.Generator
	Production bool
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	cookies := cookieJar{production: cfg.Production}
	sessions := &Sessions{tokens: cfg.Tokens, cookies: cookies}
	authHandler := &AuthHandler{Accounts: cfg.Accounts, Challenges: cfg.Captcha, cookies: cookies}
	usersHandler := &UsersHandler{Accounts: cfg.Accounts}

	requireIdentity := sessions.RequireIdentity
	elevated := RequireRole(model.Elevated)
	ownerOnly := RequireRole(model.OwnerOnly)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.PingContext(r.Context()); err != nil {
				writeError(w, r, err)
				return
			}
		}
		jsonResponse(w, http.StatusOK, messageResponse{Success: true, Message: "ok"})
	})

	// Public.
	mux.HandleFunc("GET /api/auth/captcha", authHandler.Captcha)
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/session", sessions.OptionalIdentity(http.HandlerFunc(authHandler.Session)))

	// Authenticated.
	mux.Handle("PUT /api/auth/password", requireIdentity(http.HandlerFunc(authHandler.ChangePassword)))

	// Users: read and enable/disable (elevated), role and delete (owner only).
	mux.Handle("GET /api/users", requireIdentity(elevated(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/{id}", requireIdentity(elevated(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/active", requireIdentity(elevated(http.HandlerFunc(usersHandler.SetActive))))
	mux.Handle("PUT /api/users/{id}/role", requireIdentity(ownerOnly(http.HandlerFunc(usersHandler.SetRole))))
	mux.Handle("DELETE /api/users/{id}", requireIdentity(ownerOnly(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
