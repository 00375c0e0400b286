// Package documents provides the PostgreSQL-backed document repository.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts doc. The partial unique index on verification types turns a
// concurrent second upload into common.ErrDocumentExists.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, user_id, name, document_type, file_type, storage_key, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, doc.ID, doc.UserID, doc.Name, string(doc.DocumentType),
		string(doc.FileType), doc.StorageKey, doc.Size, doc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrDocumentExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, user_id, name, document_type, file_type, storage_key, size, created_at
		FROM documents
		WHERE id = $1
	`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

// GetForUpdate is GetByID taking a row lock, so concurrent share and delete
// operations on one document run one after another. Use inside a transaction.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, user_id, name, document_type, file_type, storage_key, size, created_at
		FROM documents
		WHERE id = $1
		FOR UPDATE
	`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Document, error) {
	query := `
		SELECT id, user_id, name, document_type, file_type, storage_key, size, created_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListSharedWith(ctx context.Context, recipientID, connectionID string, now time.Time) ([]*models.Document, error) {
	query := `
		SELECT d.id, d.user_id, d.name, d.document_type, d.file_type, d.storage_key, d.size, d.created_at,
		       s.id, s.connection_id, s.status, s.shared_at, s.expires_at
		FROM document_shares s
		JOIN documents d ON d.id = s.document_id
		WHERE s.recipient_id = $1
		  AND ($2 = '' OR s.connection_id = $2)
		  AND s.status <> 'revoked'
		  AND s.expires_at > $3
		ORDER BY s.shared_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID, connectionID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		var (
			doc              models.Document
			share            models.Share
			docType, ft, sts string
		)
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &docType, &ft, &doc.StorageKey, &doc.Size, &doc.CreatedAt,
			&share.ID, &share.ConnectionID, &sts, &share.SharedAt, &share.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		doc.DocumentType = models.DocumentType(docType)
		doc.FileType = models.FileType(ft)
		share.DocumentID = doc.ID
		share.RecipientID = recipientID
		share.Status = models.ShareStatus(sts)
		doc.SharedWith = []*models.Share{&share}
		result = append(result, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ExistsByType(ctx context.Context, userID string, docType models.DocumentType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM documents WHERE user_id = $1 AND document_type = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, string(docType)).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc         models.Document
		docType, ft string
	)
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Name, &docType, &ft, &doc.StorageKey, &doc.Size, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.DocumentType = models.DocumentType(docType)
	doc.FileType = models.FileType(ft)
	return &doc, nil
}
