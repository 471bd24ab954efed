// Package refreshtokens declares the repository contract for refresh tokens
// and its PostgreSQL implementation.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/google/uuid"
)

// Repository stores refresh tokens keyed by their UUID.
type Repository interface {
	// Create persists token, including its client context, and fills in
	// the created/modified timestamps.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns common.ErrorNotFound when id is unknown.
	Find(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)

	// Delete removes one token. Deleting a missing token is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByAccount removes every token of an account and returns how
	// many were removed.
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
}
