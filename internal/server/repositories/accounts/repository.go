// Package accounts declares the repository contract for administrator
// accounts and its PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/pushauth/internal/server/models"
)

// Repository reads and provisions accounts. Lookups return
// common.ErrorNotFound when no row matches.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)

	// Create inserts the account and fills in its ID and timestamps.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// SetPasswordHash replaces the stored hash; nil disables login.
	SetPasswordHash(ctx context.Context, id int64, hash *string) error
}
