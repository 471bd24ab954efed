package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pushauth/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client-facing messages. Unknown username, wrong password and a missing
// hash all share msgInvalidCredentials so the response never reveals
// whether an account exists.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgAccountExpired     = "Account is expired"
	msgRefreshNotFound    = "Refresh token not found"
	msgInvalidBody        = "Invalid request body"
	msgInternal           = "internal error"

	msgMissingAccessToken = "Missing access token"
	msgCouldNotDecode     = "Could not decode access token"
	msgInvalidPayload     = "Invalid access token payload"
	msgMissingXSRF        = "Missing XSRF token"
	msgInvalidXSRF        = "Invalid XSRF token"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError renders session-manager errors. Internal details never reach
// the client.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrAccountNotFound),
		errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrNoPasswordHash):
		writeError(w, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, common.ErrAccountExpired):
		writeError(w, http.StatusBadRequest, msgAccountExpired)
	case errors.Is(err, common.ErrTokenNotFound),
		errors.Is(err, common.ErrTokenInvalid),
		errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, msgRefreshNotFound)
	default:
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// gateMessage maps verification errors to the 401 message.
func gateMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidPayload):
		return msgInvalidPayload
	case errors.Is(err, common.ErrMissingXSRF):
		return msgMissingXSRF
	case errors.Is(err, common.ErrInvalidXSRF):
		return msgInvalidXSRF
	default:
		return msgCouldNotDecode
	}
}
