package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Roylkrishna/srg-sub001/internal/auth"
	"github.com/Roylkrishna/srg-sub001/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionState tells handlers behind OptionalIdentity what the request
// carried.
type SessionState int

const (
	// Anonymous requests carry no token.
	Anonymous SessionState = iota
	// Authenticated requests carry a valid token.
	Authenticated
	// Invalid requests carry a token that failed verification.
	Invalid
)

func (s SessionState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	default:
		return "anonymous"
	}
}

// Session is the resolved identity of a request. Identity is set only when
// State is Authenticated.
type Session struct {
	State    SessionState
	Identity *auth.Identity
}

// Sessions resolves the access_token cookie and slides its expiry.
type Sessions struct {
	tokens  *auth.Tokens
	cookies cookieJar
}

// resolve verifies the token cookie. A valid token is reissued with a fresh
// expiry; an invalid one is cleared.
func (s *Sessions) resolve(w http.ResponseWriter, r *http.Request) Session {
	token := cookieValue(r, TokenCookie)
	if token == "" {
		return Session{State: Anonymous}
	}

	id, err := s.tokens.Verify(token)
	if err != nil {
		s.cookies.clear(w, TokenCookie)
		return Session{State: Invalid}
	}

	// Renewal does not consult the store. A disabled or deleted account keeps
	// a working token on protected routes until it logs out or stays idle past
	// the token lifetime; the session endpoint reports it unauthenticated.
	renewed, _, err := s.tokens.Issue(id.AccountID, id.Role)
	if err != nil {
		// The current token is still good; skip renewal this time.
		slog.Error("failed to renew token", "error", err)
	} else {
		s.cookies.setToken(w, renewed)
	}

	return Session{State: Authenticated, Identity: id}
}

// RequireIdentity rejects requests without a valid token with 401. It does
// not look at the role.
func (s *Sessions) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.resolve(w, r)
		if sess.State != Authenticated {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalIdentity attaches the session whatever its state and never
// rejects.
func (s *Sessions) OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.resolve(w, r)
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that allows only identities whose role is
// in allowed. It must run after RequireIdentity or OptionalIdentity.
func RequireRole(allowed model.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if id == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !allowed.Allows(id.Role) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession returns the session attached by the identity middleware. It is
// Anonymous when none was attached.
func GetSession(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionKey).(Session)
	return sess
}

// GetIdentity returns the verified identity, or nil.
func GetIdentity(ctx context.Context) *auth.Identity {
	sess := GetSession(ctx)
	if sess.State != Authenticated {
		return nil
	}
	return sess.Identity
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
