// Package shares declares persistence for document share grants.
package shares

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, share *models.Share) error
	// ListByDocumentAndRecipient returns every share of docID for
	// recipientID, newest first, revoked and expired ones included.
	ListByDocumentAndRecipient(ctx context.Context, docID, recipientID string) ([]*models.Share, error)
	ListByDocument(ctx context.Context, docID string) ([]*models.Share, error)
	// UpdateStatus changes a share that is not yet revoked. It returns
	// common.ErrorNotFound when no such share exists.
	UpdateStatus(ctx context.Context, shareID string, status models.ShareStatus) error
	// Revoke marks the unexpired active shares of docID as revoked. An empty
	// recipientID revokes for all recipients.
	Revoke(ctx context.Context, docID, recipientID string, now time.Time) (int64, error)
	DeleteByDocument(ctx context.Context, docID string) (int64, error)
}
