package models

// AccessTokenPayload is the claim set carried by a signed access token.
// XSRF is the double-submit token that must be echoed in X-XSRF-TOKEN for
// state-changing requests.
type AccessTokenPayload struct {
	ID         int64      `json:"id"`
	Exp        int64      `json:"exp"`
	XSRF       string     `json:"xsrf"`
	Privileges Privileges `json:"privileges"`
}
