package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/blobstore"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/connections"
	"github.com/dmitrijs2005/docvault/internal/server/events"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UploadInput describes a document being uploaded.
type UploadInput struct {
	Name         string
	DocumentType models.DocumentType
	FileType     models.FileType
	ContentType  string
	Size         int64
}

// ShareResult lists the shares created by one Share call and the
// documents skipped because an active share already existed.
type ShareResult struct {
	Created []*models.Share `json:"created"`
	Skipped []string        `json:"skipped,omitempty"`
}

// ViewResult is a time-limited link to a document's content.
type ViewResult struct {
	Document  *models.Document `json:"document"`
	URL       string           `json:"url"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// DocumentDeps bundles the collaborators of DocumentService. Events,
// Logger and Now are optional.
type DocumentDeps struct {
	DB     dbx.Transactor
	Repos  repomanager.RepositoryManager
	Blobs  blobstore.Store
	Graph  connections.Graph
	Events events.Publisher
	Logger logging.Logger
	Now    func() time.Time
}

type DocumentService struct {
	db     dbx.Transactor
	repos  repomanager.RepositoryManager
	blobs  blobstore.Store
	graph  connections.Graph
	events events.Publisher
	logger logging.Logger
	now    func() time.Time

	shareTTL time.Duration
	urlTTL   time.Duration
}

func NewDocumentService(d DocumentDeps, cfg *config.Config) *DocumentService {
	s := &DocumentService{
		db:       d.DB,
		repos:    d.Repos,
		blobs:    d.Blobs,
		graph:    d.Graph,
		events:   d.Events,
		logger:   d.Logger,
		now:      d.Now,
		shareTTL: cfg.ShareValidityDuration,
		urlTTL:   cfg.SignedURLValidityDuration,
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	s.logger = s.logger.With("module", "documents")
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Upload stores body in the blob store and records its metadata. The blob
// is removed again when the metadata cannot be saved.
func (s *DocumentService) Upload(ctx context.Context, ownerID string, in UploadInput, body io.Reader) (*models.Document, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", common.ErrValidation)
	}
	if !in.DocumentType.Valid() {
		return nil, fmt.Errorf("%w: %q is not a valid document type", common.ErrValidation, in.DocumentType)
	}
	fileType := models.FileType(strings.ToLower(string(in.FileType)))
	if !fileType.Valid() {
		return nil, common.ErrUnsupportedFileType
	}

	docs := s.repos.Documents(s.db.Conn())
	if in.DocumentType.IsVerification() {
		exists, err := docs.ExistsByType(ctx, ownerID, in.DocumentType)
		if err != nil {
			return nil, s.dependency(ctx, "error checking existing documents", err)
		}
		if exists {
			return nil, common.ErrDocumentExists
		}
	}

	now := s.now()
	key := blobstore.NewStorageKey(ownerID, now)
	if err := s.blobs.Upload(ctx, key, in.ContentType, body, in.Size); err != nil {
		s.logger.Error(ctx, "blob upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	doc := &models.Document{
		ID:           "doc_" + uuid.NewString(),
		UserID:       ownerID,
		Name:         name,
		DocumentType: in.DocumentType,
		FileType:     fileType,
		StorageKey:   key,
		Size:         in.Size,
		CreatedAt:    now,
	}
	if err := docs.Create(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Error(ctx, "orphaned blob", "key", key, "error", derr)
		}
		if errors.Is(err, common.ErrDocumentExists) {
			return nil, err
		}
		return nil, s.dependency(ctx, "error saving document", err)
	}
	return doc, nil
}

// ListDocuments returns the documents of ownerID with all their shares.
func (s *DocumentService) ListDocuments(ctx context.Context, ownerID string) ([]*models.Document, error) {
	conn := s.db.Conn()
	docs, err := s.repos.Documents(conn).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.dependency(ctx, "error listing documents", err)
	}
	for _, d := range docs {
		d.SharedWith, err = s.repos.Shares(conn).ListByDocument(ctx, d.ID)
		if err != nil {
			return nil, s.dependency(ctx, "error listing shares", err)
		}
	}
	return docs, nil
}

// Share grants recipientID pending access to docIDs under connectionID.
// Documents already actively shared with the recipient are skipped. Either
// every share is created or none is.
func (s *DocumentService) Share(ctx context.Context, ownerID, connectionID string, docIDs []string, recipientID string) (*ShareResult, error) {
	if len(docIDs) == 0 {
		return nil, fmt.Errorf("%w: no documents to share", common.ErrValidation)
	}
	if connectionID == "" || recipientID == "" {
		return nil, fmt.Errorf("%w: connection and recipient are required", common.ErrValidation)
	}
	if recipientID == ownerID {
		return nil, fmt.Errorf("%w: cannot share documents with yourself", common.ErrValidation)
	}

	status, err := s.graph.Status(ctx, connectionID, ownerID, recipientID)
	if err != nil {
		return nil, s.dependency(ctx, "error checking connection", err)
	}
	if status != connections.StatusAccepted {
		return nil, common.ErrNotConnected
	}

	if _, err := s.repos.Users(s.db.Conn()).GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.dependency(ctx, "error fetching recipient", err)
	}

	now := s.now()
	res := &ShareResult{}
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repos.Documents(tx)
		shares := s.repos.Shares(tx)

		for _, id := range docIDs {
			doc, err := docs.GetForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrDocumentNotFound
				}
				return err
			}
			if doc.UserID != ownerID {
				return common.ErrNotAuthorized
			}

			existing, err := shares.ListByDocumentAndRecipient(ctx, id, recipientID)
			if err != nil {
				return err
			}
			if hasActive(existing, now) {
				res.Skipped = append(res.Skipped, id)
				continue
			}

			sh := &models.Share{
				DocumentID:   id,
				RecipientID:  recipientID,
				ConnectionID: connectionID,
				Status:       models.ShareStatusPending,
				SharedAt:     now,
				ExpiresAt:    now.Add(s.shareTTL),
			}
			if err := shares.Create(ctx, sh); err != nil {
				return err
			}
			res.Created = append(res.Created, sh)
		}
		return nil
	})
	if err != nil {
		if common.KindOf(err) != common.KindUnknown {
			return nil, err
		}
		return nil, s.dependency(ctx, "error sharing documents", err)
	}

	for _, sh := range res.Created {
		s.publish(ctx, events.DocumentShared, sh.DocumentID, sh)
	}
	return res, nil
}

// GetSharedFor lists documents viewerID currently has a live share for,
// optionally narrowed to one connection.
func (s *DocumentService) GetSharedFor(ctx context.Context, viewerID, connectionID string) ([]*models.Document, error) {
	docs, err := s.repos.Documents(s.db.Conn()).ListSharedWith(ctx, viewerID, connectionID, s.now())
	if err != nil {
		return nil, s.dependency(ctx, "error listing shared documents", err)
	}
	return docs, nil
}

// View resolves a signed URL for docID if viewerID owns it or holds an
// accepted, unexpired share. The URL never outlives the share.
func (s *DocumentService) View(ctx context.Context, docID, viewerID, connectionID string) (*ViewResult, error) {
	conn := s.db.Conn()
	doc, err := s.repos.Documents(conn).GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrDocumentNotFound
		}
		return nil, s.dependency(ctx, "error fetching document", err)
	}

	now := s.now()
	ttl := s.urlTTL
	if doc.UserID != viewerID {
		list, err := s.repos.Shares(conn).ListByDocumentAndRecipient(ctx, docID, viewerID)
		if err != nil {
			return nil, s.dependency(ctx, "error fetching shares", err)
		}
		sh, err := grantingShare(list, connectionID, now)
		if err != nil {
			return nil, err
		}
		if left := sh.ExpiresAt.Sub(now); left < ttl {
			ttl = left
		}
	}

	if !doc.FileType.Viewable() {
		return nil, common.ErrUnsupportedFileType
	}

	url, err := s.blobs.SignedURL(ctx, doc.StorageKey, ttl)
	if err != nil {
		s.logger.Error(ctx, "signing url failed", "doc_id", docID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return &ViewResult{Document: doc, URL: url, ExpiresAt: now.Add(ttl)}, nil
}

// grantingShare picks the share that lets the viewer in, or explains why
// none does. list is newest first.
func grantingShare(list []*models.Share, connectionID string, now time.Time) (*models.Share, error) {
	var pending, expired bool
	for _, sh := range list {
		if connectionID != "" && sh.ConnectionID != connectionID {
			continue
		}
		switch {
		case sh.Status == models.ShareStatusRevoked:
		case !now.Before(sh.ExpiresAt):
			expired = true
		case sh.Status == models.ShareStatusAccepted:
			return sh, nil
		default:
			pending = true
		}
	}
	switch {
	case pending:
		return nil, common.ErrPendingAcceptance
	case expired:
		return nil, common.ErrShareExpired
	default:
		return nil, common.ErrNotShared
	}
}

// UpdateStatus lets a recipient accept (or otherwise move) their own share
// of docID. Revoked shares stay revoked.
func (s *DocumentService) UpdateStatus(ctx context.Context, docID, viewerID string, status models.ShareStatus) (*models.Share, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q is not a valid share status", common.ErrValidation, status)
	}

	repo := s.repos.Shares(s.db.Conn())
	list, err := repo.ListByDocumentAndRecipient(ctx, docID, viewerID)
	if err != nil {
		return nil, s.dependency(ctx, "error fetching shares", err)
	}
	if len(list) == 0 {
		return nil, common.ErrNotShared
	}

	var target *models.Share
	for _, sh := range list {
		if sh.Status != models.ShareStatusRevoked {
			target = sh
			break
		}
	}
	if target == nil {
		return nil, common.ErrShareRevoked
	}
	if !s.now().Before(target.ExpiresAt) {
		return nil, common.ErrShareExpired
	}

	if err := repo.UpdateStatus(ctx, target.ID, status); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrShareRevoked
		}
		return nil, s.dependency(ctx, "error updating share", err)
	}
	target.Status = status
	return target, nil
}

// Revoke ends the active shares of docID for recipientID, or for everyone
// when recipientID is empty. Only the owner may revoke.
func (s *DocumentService) Revoke(ctx context.Context, docID, ownerID, recipientID string) (int64, error) {
	conn := s.db.Conn()
	doc, err := s.repos.Documents(conn).GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrDocumentNotFound
		}
		return 0, s.dependency(ctx, "error fetching document", err)
	}
	if doc.UserID != ownerID {
		return 0, common.ErrNotAuthorized
	}

	n, err := s.repos.Shares(conn).Revoke(ctx, docID, recipientID, s.now())
	if err != nil {
		return 0, s.dependency(ctx, "error revoking shares", err)
	}
	if n > 0 {
		s.publish(ctx, events.ShareRevoked, docID, map[string]any{
			"documentId":  docID,
			"recipientId": recipientID,
			"revoked":     n,
		})
	}
	return n, nil
}

// DeleteDocument removes docID with its shares. Removing the identity
// photo also clears the owner's verified flag in the same transaction.
func (s *DocumentService) DeleteDocument(ctx context.Context, docID, ownerID string) error {
	var doc *models.Document
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		doc, err = s.repos.Documents(tx).GetForUpdate(ctx, docID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrDocumentNotFound
			}
			return err
		}
		if doc.UserID != ownerID {
			return common.ErrNotAuthorized
		}

		if _, err := s.repos.Shares(tx).DeleteByDocument(ctx, docID); err != nil {
			return fmt.Errorf("error deleting shares: %w", err)
		}
		if err := s.repos.Documents(tx).Delete(ctx, docID); err != nil {
			return fmt.Errorf("error deleting document: %w", err)
		}
		if doc.DocumentType == models.DocumentTypePhoto {
			if err := s.repos.Users(tx).SetIdentityVerified(ctx, ownerID, false); err != nil {
				return fmt.Errorf("error clearing verification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDocumentNotFound) || errors.Is(err, common.ErrNotAuthorized) {
			return err
		}
		return s.dependency(ctx, "error deleting document", err)
	}

	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Error(ctx, "orphaned blob", "key", doc.StorageKey, "error", err)
	}
	return nil
}

func hasActive(list []*models.Share, now time.Time) bool {
	for _, sh := range list {
		if sh.Active(now) {
			return true
		}
	}
	return false
}

func (s *DocumentService) publish(ctx context.Context, t events.Type, key string, payload any) {
	publishEvent(ctx, s.events, s.logger, t, key, payload, s.now())
}

func (s *DocumentService) dependency(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
