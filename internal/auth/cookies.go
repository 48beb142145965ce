package auth

import (
	"net/http"
	"time"
)

// Distinct cookie names keep the two credential classes from ever being
// substituted for one another by name collision.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieConfig holds cookie transport settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// SetAccessTokenCookie attaches an access token as an httpOnly cookie.
func SetAccessTokenCookie(w http.ResponseWriter, token string, maxAge time.Duration, config CookieConfig) {
	http.SetCookie(w, credentialCookie(AccessCookieName, token, maxAge, config))
}

// SetRefreshTokenCookie attaches a refresh token as an httpOnly cookie.
func SetRefreshTokenCookie(w http.ResponseWriter, token string, maxAge time.Duration, config CookieConfig) {
	http.SetCookie(w, credentialCookie(RefreshCookieName, token, maxAge, config))
}

// ClearSessionCookies expires both credential cookies. Used on logout and
// whenever verification fails in a way that requires re-authentication.
func ClearSessionCookies(w http.ResponseWriter, config CookieConfig) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   config.Domain,
			MaxAge:   -1, // Negative MaxAge deletes the cookie
			HttpOnly: true,
			Secure:   config.Secure,
			SameSite: parseSameSite(config.SameSite),
		})
	}
}

// GetAccessTokenCookie retrieves the access token from the request, or ""
// when the cookie is absent.
func GetAccessTokenCookie(r *http.Request) string {
	return cookieValue(r, AccessCookieName)
}

// GetRefreshTokenCookie retrieves the refresh token from the request, or ""
// when the cookie is absent.
func GetRefreshTokenCookie(r *http.Request) string {
	return cookieValue(r, RefreshCookieName)
}

func credentialCookie(name, value string, maxAge time.Duration, config CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true, // prevents JavaScript access (XSS protection)
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
