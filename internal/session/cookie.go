// internal/session/cookie.go
//
// Session-id cookie helpers.
//
// Context
//   The JSON API addresses sessions by id in the path, but a browser that
//   reloads the page should find its half-filled form again.  These helpers
//   set, read, and clear a cookie carrying only the opaque session id.  No
//   form data ever goes into the cookie.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "neurion_contact_session"

// SetCookie stores id for the lifetime of an idle session.
func SetCookie(w http.ResponseWriter, r *http.Request, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// IDFromCookie returns the session id carried by r, if any.
//
// ok == false when the cookie is missing or not a UUID.
func IDFromCookie(r *http.Request) (id string, ok bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}
