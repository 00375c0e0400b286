// Package refreshtokens declares the server-side repository contract for
// persisted refresh sessions. Tokens are addressed by the SHA-256 hash of
// the raw JWT; the raw value is never stored.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh session for userID.
	Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error

	// Find looks up a session by token hash. Returns common.ErrorNotFound
	// when absent.
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Delete removes a session by token hash and reports how many rows were
	// removed. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, tokenHash string) (int64, error)

	// DeleteByUser removes every session of userID.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// ListByUser returns sessions of userID that have not expired at now,
	// newest first.
	ListByUser(ctx context.Context, userID string, now time.Time) ([]*models.RefreshToken, error)
}
