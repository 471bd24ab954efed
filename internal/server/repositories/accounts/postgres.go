package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/dbx"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, username, password_hash, expiry,
		privilege_delete_enrollment, privilege_void, created, modified
	FROM accounts
`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		a      models.Account
		hash   sql.NullString
		expiry sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &hash, &expiry,
		&a.Privileges.DeleteEnrollment, &a.Privileges.Void, &a.Created, &a.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if hash.Valid {
		a.PasswordHash = &hash.String
	}
	if expiry.Valid {
		a.Expiry = &expiry.Time
	}
	return &a, nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE username = $1`, username))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE id = $1`, id))
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, password_hash, expiry, privilege_delete_enrollment, privilege_void)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created, modified
		 `

	var hash sql.NullString
	if account.PasswordHash != nil {
		hash = sql.NullString{String: *account.PasswordHash, Valid: true}
	}
	var expiry sql.NullTime
	if account.Expiry != nil {
		expiry = sql.NullTime{Time: *account.Expiry, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		account.Username, hash, expiry, account.Privileges.DeleteEnrollment, account.Privileges.Void,
	).Scan(&account.ID, &account.Created, &account.Modified)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id int64, hash *string) error {
	query :=
		`UPDATE accounts SET password_hash = $1, modified = now()
		 WHERE id = $2
		 `

	var h sql.NullString
	if hash != nil {
		h = sql.NullString{String: *hash, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, h, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
