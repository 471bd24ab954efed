package services

import (
	"encoding/base64"
	"net/http"
	"path"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/config"
	"github.com/google/uuid"
)

// CookiePolicy decides names, scopes and lifetimes of the session cookies.
type CookiePolicy struct {
	Domain     string
	Path       string
	AccessPath string
	Secure     bool

	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
}

func NewCookiePolicy(cfg *config.Config) CookiePolicy {
	return CookiePolicy{
		Domain:          cfg.CookieDomain,
		Path:            cfg.CookiePath,
		AccessPath:      cfg.EffectiveAccessCookiePath(),
		Secure:          cfg.IsProduction(),
		AccessLifetime:  cfg.AccessTokenValidityDuration,
		RefreshLifetime: cfg.RefreshTokenValidityDuration,
	}
}

// RefreshPath is where the browser sends refresh cookies: the /auth subtree,
// which holds both the refresh and the logout endpoints.
func (p CookiePolicy) RefreshPath() string {
	return path.Join(p.Path, "auth")
}

func (p CookiePolicy) cookie(name, value, cookiePath string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookiePath,
		Domain:   p.Domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   p.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteStrictMode,
	}
}

// AccessCookies returns the accessToken cookie and the script-readable
// XSRF-TOKEN cookie. Both live as long as the access token.
func (p CookiePolicy) AccessCookies(accessToken, xsrf string) []*http.Cookie {
	return []*http.Cookie{
		p.cookie(common.AccessTokenCookieName, accessToken, p.AccessPath, p.AccessLifetime, true),
		p.cookie(common.XSRFCookieName, xsrf, "/", p.AccessLifetime, false),
	}
}

// RefreshCookies returns the refresh secret and identifier cookies. Without
// stayLoggedIn they carry no Max-Age and end with the browser session.
func (p CookiePolicy) RefreshCookies(id uuid.UUID, secret []byte, stayLoggedIn bool) []*http.Cookie {
	var maxAge time.Duration
	if stayLoggedIn {
		maxAge = p.RefreshLifetime
	}
	return []*http.Cookie{
		p.cookie(common.RefreshTokenCookieName, base64.StdEncoding.EncodeToString(secret), p.RefreshPath(), maxAge, true),
		p.cookie(common.RefreshTokenIDCookieName, id.String(), p.RefreshPath(), maxAge, true),
	}
}

// ClearCookies returns deletion cookies for all four session cookies.
func (p CookiePolicy) ClearCookies() []*http.Cookie {
	expire := func(c *http.Cookie) *http.Cookie {
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}
	return []*http.Cookie{
		expire(p.cookie(common.AccessTokenCookieName, "", p.AccessPath, 0, true)),
		expire(p.cookie(common.XSRFCookieName, "", "/", 0, false)),
		expire(p.cookie(common.RefreshTokenCookieName, "", p.RefreshPath(), 0, true)),
		expire(p.cookie(common.RefreshTokenIDCookieName, "", p.RefreshPath(), 0, true)),
	}
}

// DecodeRefreshSecret reverses the encoding used by RefreshCookies.
func DecodeRefreshSecret(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}
