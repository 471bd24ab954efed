package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/services"
	"github.com/google/uuid"
)

const maxLoginBody = 1 << 16

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	StayLoggedIn bool   `json:"stayLoggedIn"`
}

func setCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err := dec.Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := a.sessions.Login(r.Context(), services.LoginRequest{
		Username:     req.Username,
		Password:     req.Password,
		StayLoggedIn: req.StayLoggedIn,
		Client:       a.clients.FromRequest(r),
	})
	if err != nil {
		mapError(w, err)
		return
	}

	setCookies(w, res.Cookies)
	writeJSON(w, http.StatusOK, res.Payload)
}

// refreshCookies reads the split refresh token cookies. ok is false when
// either is absent or malformed.
func refreshCookies(r *http.Request) (id uuid.UUID, secret []byte, ok bool) {
	idCookie, err := r.Cookie(common.RefreshTokenIDCookieName)
	if err != nil {
		return uuid.Nil, nil, false
	}
	secretCookie, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return uuid.Nil, nil, false
	}
	id, err = uuid.Parse(idCookie.Value)
	if err != nil {
		return uuid.Nil, nil, false
	}
	secret, err = services.DecodeRefreshSecret(secretCookie.Value)
	if err != nil || len(secret) == 0 {
		return uuid.Nil, nil, false
	}
	return id, secret, true
}

// Refresh handles POST /auth/refresh.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := refreshCookies(r)
	if !ok {
		mapError(w, common.ErrTokenNotFound)
		return
	}

	res, err := a.sessions.Refresh(r.Context(), id, secret)
	if err != nil {
		mapError(w, err)
		return
	}

	setCookies(w, res.Cookies)
	writeJSON(w, http.StatusOK, res.Payload)
}

// Logout handles POST /auth/logout. Session cookies are cleared whatever
// the outcome.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	var (
		idp    *uuid.UUID
		secret []byte
	)
	if id, s, ok := refreshCookies(r); ok {
		idp, secret = &id, s
	}

	err := a.sessions.Logout(r.Context(), idp, secret)
	setCookies(w, a.sessions.ClearCookies())
	if err != nil {
		if !errors.Is(err, common.ErrorInternal) {
			a.logger.Warn(r.Context(), "logout failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /auth/session and echoes the verified payload.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	payload, ok := PayloadFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgCouldNotDecode)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
