// Package clientinfo derives the audit context stored with a refresh token
// from an incoming HTTP request: client IP, browser details parsed from the
// User-Agent and, when a GeoIP2 City database is configured, location.
package clientinfo

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"
)

// CityLookup is the subset of *geoip2.Reader used here.
type CityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Resolver builds models.ClientContext values. The zero value resolves
// without geolocation.
type Resolver struct {
	geo    CityLookup
	logger logging.Logger
}

// NewResolver returns a Resolver. geo may be nil.
func NewResolver(geo CityLookup, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Resolver{geo: geo, logger: logger}
}

// OpenGeoIP opens a GeoIP2 or GeoLite2 City database.
func OpenGeoIP(path string) (*geoip2.Reader, error) {
	return geoip2.Open(path)
}

// ClientIP returns the first X-Forwarded-For entry when present and the
// request's remote address otherwise. The header is client controlled, so
// the result is only fit for audit records. Use PeerIP for anything that
// enforces limits.
func ClientIP(r *http.Request) (netip.Addr, bool) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if addr, ok := parseAddr(strings.Split(fwd, ",")[0]); ok {
			return addr, true
		}
	}
	return remoteIP(r)
}

// PeerIP returns the address of the client as far as it can be trusted.
// Forwarding headers (X-Forwarded-For, Forwarded, X-Real-IP in that order)
// are honoured only when the direct peer lies inside one of trusted.
// Otherwise, including when trusted is empty, the remote address is used.
func PeerIP(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	peer, ok := remoteIP(r)
	if !ok || !contains(trusted, peer) {
		return peer, ok
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if addr, ok := parseAddr(part); ok {
				return addr, true
			}
		}
	}

	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		for _, elem := range strings.Split(fwd, ",") {
			for _, param := range strings.Split(elem, ";") {
				param = strings.TrimSpace(param)
				if len(param) < 4 || !strings.EqualFold(param[:4], "for=") {
					continue
				}
				if addr, ok := parseAddr(param[4:]); ok {
					return addr, true
				}
			}
		}
	}

	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr, true
	}
	return peer, true
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) (netip.Addr, bool) {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// parseAddr accepts a bare address, a quoted one, "[v6]" or "host:port"
// as found in forwarding headers.
func parseAddr(raw string) (netip.Addr, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" {
		return netip.Addr{}, false
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap(), true
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func ptr[T any](v T) *T { return &v }

// Column widths of the refresh_tokens audit columns.
const (
	maxBrowserLen = 64
	maxVersionLen = 64
	maxOSLen      = 64
	maxCityLen    = 128
	maxCountryLen = 2
)

// bounded returns s cut to at most limit runes, or nil when s is empty.
func bounded(s string, limit int) *string {
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return &s
}

// FromRequest captures the client context of r. Missing information leaves
// the corresponding field nil.
func (res *Resolver) FromRequest(r *http.Request) models.ClientContext {
	var c models.ClientContext

	if ua := r.UserAgent(); ua != "" {
		c.UserAgent = &ua
		parsed := useragent.New(ua)
		name, version := parsed.Browser()
		c.Browser = bounded(name, maxBrowserLen)
		c.BrowserVersion = bounded(version, maxVersionLen)
		c.Mobile = ptr(parsed.Mobile())
		c.OS = bounded(parsed.OS(), maxOSLen)
	}

	addr, ok := ClientIP(r)
	if !ok {
		return c
	}
	c.IPAddress = &addr

	if res == nil || res.geo == nil {
		return c
	}
	city, err := res.geo.City(net.IP(addr.AsSlice()))
	if err != nil {
		res.logger.Debug(context.Background(), "geoip lookup failed", "ip", addr.String(), "error", err)
		return c
	}
	c.City = bounded(city.City.Names["en"], maxCityLen)
	c.Country = bounded(city.Country.IsoCode, maxCountryLen)
	if city.Location.Latitude != 0 || city.Location.Longitude != 0 {
		c.Latitude = ptr(city.Location.Latitude)
		c.Longitude = ptr(city.Location.Longitude)
	}
	return c
}
