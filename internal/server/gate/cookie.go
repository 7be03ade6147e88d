package gate

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/common"
)

// DefaultSessionMaxAge is used when a CookiePolicy has no MaxAge.
const DefaultSessionMaxAge = 7 * 24 * time.Hour

// CookiePolicy describes the session cookie the transports hand out. MaxAge
// should equal the absolute session lifetime so the browser drops the cookie
// when the server stops accepting the token.
type CookiePolicy struct {
	Secure bool
	MaxAge time.Duration
}

func (p CookiePolicy) maxAge() time.Duration {
	if p.MaxAge <= 0 {
		return DefaultSessionMaxAge
	}
	return p.MaxAge
}

// SessionCookie is the cookie carrying token after login. Transports apply it
// with http.SetCookie or as a set-cookie header.
func (p CookiePolicy) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.maxAge().Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie removes the session cookie from the client.
func (p CookiePolicy) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
