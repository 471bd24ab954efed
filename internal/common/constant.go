package common

// Cookie and header names shared with browser clients. They are part of the
// wire contract and must not change.
const (
	AccessTokenCookieName    = "accessToken"
	XSRFCookieName           = "XSRF-TOKEN"
	RefreshTokenCookieName   = "refreshToken"
	RefreshTokenIDCookieName = "refreshTokenId"

	// XSRFHeaderName carries the echoed XSRF cookie on state-changing requests.
	XSRFHeaderName = "X-XSRF-TOKEN"
)
