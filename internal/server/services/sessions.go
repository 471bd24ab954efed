// Package services contains the session manager: login, refresh, logout and
// per-request verification of access tokens.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/dbx"
	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server/config"
	"github.com/dmitrijs2005/pushauth/internal/server/metrics"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/dmitrijs2005/pushauth/internal/server/password"
	"github.com/dmitrijs2005/pushauth/internal/server/random"
	"github.com/dmitrijs2005/pushauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	xsrfTokenBytes     = 16
	refreshSecretBytes = 64
)

// TokenSigner mints signed access tokens.
type TokenSigner interface {
	Sign(payload models.AccessTokenPayload) (string, error)
}

// TokenVerifier checks signature and expiry of an access token and returns
// its payload. Failures wrap common.ErrVerify or common.ErrInvalidPayload.
type TokenVerifier interface {
	Verify(token string) (models.AccessTokenPayload, error)
}

// Dependencies are the collaborators of SessionService. Now, NewID, Logger and
// Metrics have defaults when left nil.
type Dependencies struct {
	Signer    TokenSigner
	Verifier  TokenVerifier
	Passwords password.Verifier
	Random    random.Source
	Now       func() time.Time
	NewID     func() (uuid.UUID, error)
	Logger    logging.Logger
	Metrics   *metrics.Metrics
}

// LoginRequest is the input of Login.
type LoginRequest struct {
	Username     string
	Password     string
	StayLoggedIn bool
	Client       models.ClientContext
}

// SessionResult is a freshly minted access token payload and the cookies
// that carry it to the browser.
type SessionResult struct {
	Payload models.AccessTokenPayload
	Cookies []*http.Cookie
}

// SessionService implements the session state machine over the account and
// refresh-token repositories. Every Login, Refresh and Logout runs in one
// database transaction.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      TokenSigner
	verifier    TokenVerifier
	passwords   password.Verifier
	random      random.Source
	now         func() time.Time
	newID       func() (uuid.UUID, error)
	logger      logging.Logger
	metrics     *metrics.Metrics
	cookies     CookiePolicy
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, deps Dependencies, cfg *config.Config) *SessionService {
	s := &SessionService{
		db:          db,
		repomanager: m,
		signer:      deps.Signer,
		verifier:    deps.Verifier,
		passwords:   deps.Passwords,
		random:      deps.Random,
		now:         deps.Now,
		newID:       deps.NewID,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		cookies:     NewCookiePolicy(cfg),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewUUID
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.logger = s.logger.With("module", "sessions")
	return s
}

// ClearCookies returns deletion cookies for every session cookie.
func (s *SessionService) ClearCookies() []*http.Cookie {
	return s.cookies.ClearCookies()
}

// Login checks credentials, mints an access token and stores a new refresh
// token bound to req.Client.
//
// Errors: common.ErrAccountNotFound, common.ErrNoPasswordHash,
// common.ErrWrongPassword, common.ErrAccountExpired, common.ErrorInternal.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (result *SessionResult, err error) {
	defer func() { s.metrics.ObserveSession("login", err) }()

	now := s.now()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).FindByUsername(ctx, req.Username)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrAccountNotFound
			}
			return s.internal(ctx, "find account", err)
		}

		if account.PasswordHash == nil {
			s.logger.Error(ctx, "login attempted for account without password hash", "account_id", account.ID)
			return common.ErrNoPasswordHash
		}

		ok, err := s.passwords.Verify(req.Password, *account.PasswordHash)
		if err != nil {
			return s.internal(ctx, "verify password", err, "account_id", account.ID)
		}
		if !ok {
			return common.ErrWrongPassword
		}

		if account.Expired(now) {
			return common.ErrAccountExpired
		}

		payload, accessToken, err := s.mintAccessToken(ctx, account, now)
		if err != nil {
			return err
		}

		secret, err := s.random.Bytes(refreshSecretBytes)
		if err != nil {
			return s.internal(ctx, "generate refresh secret", err)
		}
		id, err := s.newID()
		if err != nil {
			return s.internal(ctx, "generate refresh id", err)
		}

		token := &models.RefreshToken{
			ID:        id,
			Token:     secret,
			AccountID: account.ID,
			Expiry:    now.Add(s.cookies.RefreshLifetime),
			Client:    req.Client,
		}
		if err := s.repomanager.RefreshTokens(tx).Create(ctx, token); err != nil {
			return s.internal(ctx, "store refresh token", err, "account_id", account.ID)
		}

		cookies := s.cookies.AccessCookies(accessToken, payload.XSRF)
		cookies = append(cookies, s.cookies.RefreshCookies(id, secret, req.StayLoggedIn)...)
		result = &SessionResult{Payload: payload, Cookies: cookies}

		s.logger.Info(ctx, "login succeeded", "account_id", account.ID, "stay_logged_in", req.StayLoggedIn)
		return nil
	})

	if err = s.finish(ctx, "login", err); err != nil {
		return nil, err
	}
	return result, nil
}

// Refresh mints a new access token from a refresh token. The refresh token
// itself is left untouched, so only the access and XSRF cookies are returned.
//
// Errors: common.ErrTokenNotFound, common.ErrTokenInvalid,
// common.ErrTokenExpired, common.ErrAccountExpired, common.ErrorInternal.
func (s *SessionService) Refresh(ctx context.Context, id uuid.UUID, secret []byte) (result *SessionResult, err error) {
	defer func() { s.metrics.ObserveSession("refresh", err) }()

	now := s.now()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.findRefreshToken(ctx, tx, id, secret)
		if err != nil {
			return err
		}

		if token.Expired(now) {
			return common.ErrTokenExpired
		}

		account, err := s.repomanager.Accounts(tx).FindByID(ctx, token.AccountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return s.internal(ctx, "find account", err, "account_id", token.AccountID)
		}
		if account.Expired(now) {
			return common.ErrAccountExpired
		}

		payload, accessToken, err := s.mintAccessToken(ctx, account, now)
		if err != nil {
			return err
		}

		result = &SessionResult{Payload: payload, Cookies: s.cookies.AccessCookies(accessToken, payload.XSRF)}
		return nil
	})

	if err = s.finish(ctx, "refresh", err); err != nil {
		return nil, err
	}
	return result, nil
}

// Logout deletes the refresh token when both id and secret are given.
// Unknown or mismatching tokens are not failures: only common.ErrorInternal
// is ever returned. Callers clear the cookies regardless.
func (s *SessionService) Logout(ctx context.Context, id *uuid.UUID, secret []byte) error {
	if id == nil || secret == nil {
		s.logger.Debug(ctx, "logout without refresh token")
		s.metrics.ObserveSession("logout", common.ErrTokenNotFound)
		return nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.findRefreshToken(ctx, tx, *id, secret); err != nil {
			return err
		}
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, *id); err != nil {
			return s.internal(ctx, "delete refresh token", err)
		}
		return nil
	})

	err = s.finish(ctx, "logout", err)
	s.metrics.ObserveSession("logout", err)

	if errors.Is(err, common.ErrTokenNotFound) || errors.Is(err, common.ErrTokenInvalid) {
		s.logger.Info(ctx, "logout with unusable refresh token", "reason", err.Error())
		return nil
	}
	return err
}

// Verify checks an access token and, for state-changing requests, the
// double-submit XSRF header. xsrfHeader is nil when the header was absent.
//
// Errors: common.ErrVerify, common.ErrInvalidPayload, common.ErrMissingXSRF,
// common.ErrInvalidXSRF.
func (s *SessionService) Verify(accessToken string, xsrfHeader *string, stateChanging bool) (models.AccessTokenPayload, error) {
	payload, err := s.verifier.Verify(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrVerify) || errors.Is(err, common.ErrInvalidPayload) {
			return models.AccessTokenPayload{}, err
		}
		return models.AccessTokenPayload{}, fmt.Errorf("%w: %w", common.ErrVerify, err)
	}

	if stateChanging {
		if xsrfHeader == nil {
			return models.AccessTokenPayload{}, common.ErrMissingXSRF
		}
		if subtle.ConstantTimeCompare([]byte(*xsrfHeader), []byte(payload.XSRF)) != 1 {
			return models.AccessTokenPayload{}, common.ErrInvalidXSRF
		}
	}

	return payload, nil
}

func (s *SessionService) findRefreshToken(ctx context.Context, tx dbx.DBTX, id uuid.UUID, secret []byte) (*models.RefreshToken, error) {
	token, err := s.repomanager.RefreshTokens(tx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, s.internal(ctx, "find refresh token", err)
	}
	if subtle.ConstantTimeCompare(token.Token, secret) != 1 {
		s.logger.Warn(ctx, "refresh token secret mismatch", "account_id", token.AccountID)
		return nil, common.ErrTokenInvalid
	}
	return token, nil
}

// mintAccessToken snapshots the account's privileges into a signed payload
// with a fresh XSRF token.
func (s *SessionService) mintAccessToken(ctx context.Context, account *models.Account, now time.Time) (models.AccessTokenPayload, string, error) {
	xsrf, err := s.random.Bytes(xsrfTokenBytes)
	if err != nil {
		return models.AccessTokenPayload{}, "", s.internal(ctx, "generate xsrf token", err)
	}

	payload := models.AccessTokenPayload{
		ID:         account.ID,
		Exp:        now.Add(s.cookies.AccessLifetime).Unix(),
		XSRF:       base64.StdEncoding.EncodeToString(xsrf),
		Privileges: account.Privileges,
	}

	signed, err := s.signer.Sign(payload)
	if err != nil {
		return models.AccessTokenPayload{}, "", s.internal(ctx, "sign access token", err, "account_id", account.ID)
	}
	return payload, signed, nil
}

// internal logs err with full detail and returns the opaque
// common.ErrorInternal.
func (s *SessionService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err)...)
	return common.ErrorInternal
}

var expected = []error{
	common.ErrorInternal,
	common.ErrAccountNotFound, common.ErrNoPasswordHash, common.ErrWrongPassword, common.ErrAccountExpired,
	common.ErrTokenNotFound, common.ErrTokenInvalid, common.ErrTokenExpired,
}

// finish passes typed errors through and turns anything else, such as a
// failed commit, into common.ErrorInternal.
func (s *SessionService) finish(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, e := range expected {
		if errors.Is(err, e) {
			return err
		}
	}
	return s.internal(ctx, op+" transaction", err)
}
