// Package documents declares persistence for uploaded document metadata.
package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	// GetByID returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Document, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Document, error)
	// ListSharedWith returns documents holding an unexpired, non-revoked share
	// for recipientID. Each document carries only that share in SharedWith.
	// An empty connectionID matches any connection.
	ListSharedWith(ctx context.Context, recipientID, connectionID string, now time.Time) ([]*models.Document, error)
	ExistsByType(ctx context.Context, userID string, docType models.DocumentType) (bool, error)
	// Delete returns common.ErrorNotFound when no row was removed.
	Delete(ctx context.Context, id string) error
}
