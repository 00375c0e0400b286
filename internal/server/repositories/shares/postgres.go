// Package shares provides the PostgreSQL-backed share repository.
package shares

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

const shareColumns = `id, document_id, recipient_id, connection_id, status, shared_at, expires_at`

// PostgresRepository implements share storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO document_shares (document_id, recipient_id, connection_id, status, shared_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, share.DocumentID, share.RecipientID, share.ConnectionID,
		string(share.Status), share.SharedAt, share.ExpiresAt).Scan(&share.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByDocumentAndRecipient(ctx context.Context, docID, recipientID string) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + `
		FROM document_shares
		WHERE document_id = $1 AND recipient_id = $2
		ORDER BY shared_at DESC
	`
	return r.list(ctx, query, docID, recipientID)
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, docID string) ([]*models.Share, error) {
	query := `SELECT ` + shareColumns + `
		FROM document_shares
		WHERE document_id = $1
		ORDER BY shared_at DESC
	`
	return r.list(ctx, query, docID)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, shareID string, status models.ShareStatus) error {
	query := `
		UPDATE document_shares SET status = $2
		WHERE id = $1 AND status <> 'revoked'
	`
	n, err := r.exec(ctx, query, shareID, string(status))
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, docID, recipientID string, now time.Time) (int64, error) {
	query := `
		UPDATE document_shares SET status = 'revoked'
		WHERE document_id = $1
		  AND ($2 = '' OR recipient_id::text = $2)
		  AND status <> 'revoked'
		  AND expires_at > $3
	`
	return r.exec(ctx, query, docID, recipientID, now)
}

func (r *PostgresRepository) DeleteByDocument(ctx context.Context, docID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM document_shares WHERE document_id = $1`, docID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Share, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Share
	for rows.Next() {
		var (
			s      models.Share
			status string
		)
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.RecipientID, &s.ConnectionID, &status, &s.SharedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Status = models.ShareStatus(status)
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
