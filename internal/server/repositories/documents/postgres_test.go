package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var docColumns = []string{"id", "user_id", "name", "document_type", "file_type", "storage_key", "size", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	now := time.Now()
	doc := &models.Document{ID: "doc_1", UserID: "u1", Name: "passport.pdf",
		DocumentType: models.DocumentTypePassport, FileType: models.FileTypePDF,
		StorageKey: "users/u1/k", Size: 10, CreatedAt: now}
	q := `(?s)^\s*INSERT\s+INTO\s+documents\s*\(id,\s*user_id,\s*name,\s*document_type,\s*file_type,\s*storage_key,\s*size,\s*created_at\)`

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).
			WithArgs("doc_1", "u1", "passport.pdf", "passport", "pdf", "users/u1/k", int64(10), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Create(context.Background(), doc))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("verification type taken", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WillReturnError(&pgconn.PgError{Code: "23505"})
		assert.ErrorIs(t, repo.Create(context.Background(), doc), common.ErrDocumentExists)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WillReturnError(errors.New("boom"))
		err := repo.Create(context.Background(), doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error")
	})
}

func TestGetByID(t *testing.T) {
	q := `(?s)FROM\s+documents\s+WHERE\s+id\s*=\s*\$1`

	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectQuery(q).WithArgs("doc_1").WillReturnRows(sqlmock.NewRows(docColumns).
			AddRow("doc_1", "u1", "me.png", "photo", "png", "k", int64(5), time.Now()))

		doc, err := repo.GetByID(context.Background(), "doc_1")
		require.NoError(t, err)
		assert.Equal(t, models.DocumentTypePhoto, doc.DocumentType)
		assert.Equal(t, models.FileTypePNG, doc.FileType)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectQuery(q).WithArgs("doc_x").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "doc_x")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestGetForUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).WithArgs("doc_1").
		WillReturnRows(sqlmock.NewRows(docColumns).
			AddRow("doc_1", "u1", "a.pdf", "agreement", "pdf", "k", int64(5), time.Now()))

	doc, err := repo.GetForUpdate(context.Background(), "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(docColumns).
			AddRow("doc_2", "u1", "b", "medical", "pdf", "k2", int64(2), time.Now()).
			AddRow("doc_1", "u1", "a", "id", "jpg", "k1", int64(1), time.Now()))

	docs, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc_2", docs[0].ID)
}

func TestListSharedWith(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	cols := append(append([]string{}, docColumns...), "share_id", "connection_id", "status", "shared_at", "expires_at")
	mock.ExpectQuery(`(?s)FROM\s+document_shares\s+s\s+JOIN\s+documents\s+d.*s\.status\s*<>\s*'revoked'.*s\.expires_at\s*>\s*\$3`).
		WithArgs("viewer", "conn-1", now).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("doc_1", "owner", "a", "id", "pdf", "k", int64(1), now,
				"sh-1", "conn-1", "accepted", now, now.Add(time.Hour)))

	docs, err := repo.ListSharedWith(context.Background(), "viewer", "conn-1", now)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].SharedWith, 1)
	sh := docs[0].SharedWith[0]
	assert.Equal(t, "sh-1", sh.ID)
	assert.Equal(t, "viewer", sh.RecipientID)
	assert.Equal(t, "doc_1", sh.DocumentID)
	assert.Equal(t, models.ShareStatusAccepted, sh.Status)
}

func TestExistsByType(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).WithArgs("u1", "passport").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByType(context.Background(), "u1", models.DocumentTypePassport)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE\s+FROM\s+documents\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("doc_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("doc_1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "doc_1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "doc_1"), common.ErrorNotFound)
}
