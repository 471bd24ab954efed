package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/dmitrijs2005/pushauth/internal/server/password"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", errors.New("cost too high") }

func newAccountService(t *testing.T, hasher PasswordHasher) (*AccountService, sqlmock.Sqlmock, *fakeAccountsRepo, *fakeRefreshRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	existing := "$2b$04$existing"
	accs := &fakeAccountsRepo{byName: map[string]*models.Account{
		"alice": {ID: 1, Username: "alice", PasswordHash: &existing},
	}}
	refresh := &fakeRefreshRepo{rows: map[uuid.UUID]models.RefreshToken{}}
	svc := NewAccountService(db, &fakeRepoManager{a: accs, r: refresh}, hasher, nil)
	return svc, mock, accs, refresh
}

func TestCreateAccount(t *testing.T) {
	hasher := password.NewBcrypt(bcrypt.MinCost)
	svc, mock, accs, _ := newAccountService(t, hasher)

	expiry := time.Unix(1_800_000_000, 0)
	mock.ExpectBegin()
	mock.ExpectCommit()

	created, err := svc.CreateAccount(context.Background(), "  bob ", "s3cret", models.Privileges{Void: true}, &expiry)
	require.NoError(t, err)
	assert.Equal(t, "bob", created.Username)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.Privileges{Void: true}, created.Privileges)
	assert.Equal(t, &expiry, created.Expiry)

	stored := accs.byName["bob"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.PasswordHash)
	ok, err := hasher.Verify("s3cret", *stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateAccount_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		svc, _, _, _ := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		_, err := svc.CreateAccount(ctx, " ", "pw", models.Privileges{}, nil)
		assert.ErrorIs(t, err, common.ErrEmptyUsername)
		_, err = svc.CreateAccount(ctx, "bob", "", models.Privileges{}, nil)
		assert.ErrorIs(t, err, common.ErrEmptyPassword)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, mock, _, _ := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.CreateAccount(ctx, "alice", "pw", models.Privileges{}, nil)
		assert.ErrorIs(t, err, common.ErrAccountExists)
	})

	t.Run("hash failure", func(t *testing.T) {
		svc, _, _, _ := newAccountService(t, failingHasher{})
		_, err := svc.CreateAccount(ctx, "bob", "pw", models.Privileges{}, nil)
		assert.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("db failure", func(t *testing.T) {
		svc, mock, accs, _ := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		accs.err = errors.New("db down")
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.CreateAccount(ctx, "bob", "pw", models.Privileges{}, nil)
		assert.ErrorIs(t, err, common.ErrorInternal)
	})
}

func TestSetPassword_RevokesSessions(t *testing.T) {
	hasher := password.NewBcrypt(bcrypt.MinCost)
	svc, mock, accs, refresh := newAccountService(t, hasher)

	keep := uuid.New()
	refresh.rows[uuid.New()] = models.RefreshToken{AccountID: 1}
	refresh.rows[uuid.New()] = models.RefreshToken{AccountID: 1}
	refresh.rows[keep] = models.RefreshToken{AccountID: 2}

	mock.ExpectBegin()
	mock.ExpectCommit()

	revoked, err := svc.SetPassword(context.Background(), "alice", "new-password")
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)
	assert.Len(t, refresh.rows, 1)
	assert.Contains(t, refresh.rows, keep)

	ok, err := hasher.Verify("new-password", *accs.byName["alice"].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetPassword_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		svc, mock, _, _ := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.SetPassword(ctx, "nobody", "pw")
		assert.ErrorIs(t, err, common.ErrAccountNotFound)
	})

	t.Run("empty password", func(t *testing.T) {
		svc, _, _, _ := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		_, err := svc.SetPassword(ctx, "alice", "")
		assert.ErrorIs(t, err, common.ErrEmptyPassword)
	})

	t.Run("revoke failure rolls back", func(t *testing.T) {
		svc, mock, _, refresh := newAccountService(t, password.NewBcrypt(bcrypt.MinCost))
		refresh.deleteErr = errors.New("db down")
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.SetPassword(ctx, "alice", "pw")
		assert.ErrorIs(t, err, common.ErrorInternal)
	})
}
