package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pushauth/internal/dbx"
	"github.com/dmitrijs2005/pushauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/pushauth/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so one unit of work can span both tables.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
