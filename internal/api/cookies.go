package api

import (
	"net/http"
	"time"

	"github.com/Roylkrishna/srg-sub001/internal/auth"
	"github.com/Roylkrishna/srg-sub001/internal/captcha"
)

// Cookie names.
const (
	TokenCookie   = "access_token"
	CaptchaCookie = "captcha"
)

// cookieJar writes the session and challenge cookies. Production deployments
// serve the admin UI from another origin, so cookies there are Secure with
// SameSite=None.
type cookieJar struct {
	production bool
}

func (c cookieJar) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.production {
		ck.Secure = true
		ck.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, ck)
}

func (c cookieJar) clear(w http.ResponseWriter, name string) {
	ck := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.production {
		ck.Secure = true
		ck.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, ck)
}

func (c cookieJar) setToken(w http.ResponseWriter, token string) {
	c.set(w, TokenCookie, token, auth.TokenTTL)
}

func (c cookieJar) setCaptcha(w http.ResponseWriter, value string) {
	c.set(w, CaptchaCookie, value, captcha.TTL)
}

// cookieValue returns the named cookie's value or "".
func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
