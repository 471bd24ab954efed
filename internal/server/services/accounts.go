package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/dbx"
	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/dmitrijs2005/pushauth/internal/server/repositories/repomanager"
)

// PasswordHasher produces stored password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// AccountService provisions accounts for operators. Sessions never go
// through it.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, logger logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &AccountService{db: db, repomanager: m, hasher: hasher, logger: logger.With("module", "accounts")}
}

// CreateAccount stores a new account with a bcrypt hash of password.
//
// Errors: common.ErrEmptyUsername, common.ErrEmptyPassword,
// common.ErrAccountExists, common.ErrorInternal.
func (s *AccountService) CreateAccount(ctx context.Context, username, password string, privileges models.Privileges, expiry *time.Time) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.ErrEmptyUsername
	}
	if password == "" {
		return nil, common.ErrEmptyPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		_, err := repo.FindByUsername(ctx, username)
		switch {
		case err == nil:
			return common.ErrAccountExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		created, err = repo.Create(ctx, &models.Account{
			Username:     username,
			PasswordHash: &hash,
			Expiry:       expiry,
			Privileges:   privileges,
		})
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrAccountExists) {
			return nil, err
		}
		s.logger.Error(ctx, "create account", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "account created", "account_id", created.ID)
	return created, nil
}

// SetPassword replaces the password of username and revokes every refresh
// token of the account. It returns the number of revoked tokens.
//
// Errors: common.ErrEmptyPassword, common.ErrAccountNotFound,
// common.ErrorInternal.
func (s *AccountService) SetPassword(ctx context.Context, username, password string) (int64, error) {
	if password == "" {
		return 0, common.ErrEmptyPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return 0, common.ErrorInternal
	}

	var revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrAccountNotFound
			}
			return err
		}

		if err := s.repomanager.Accounts(tx).SetPasswordHash(ctx, account.ID, &hash); err != nil {
			return err
		}

		revoked, err = s.repomanager.RefreshTokens(tx).DeleteByAccount(ctx, account.ID)
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			return 0, err
		}
		s.logger.Error(ctx, "set password", "username", username, "error", err)
		return 0, common.ErrorInternal
	}

	s.logger.Info(ctx, "password changed", "username", username, "revoked_sessions", revoked)
	return revoked, nil
}
