package client

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// Client is the API surface the CLI depends on.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, req *gs.RegisterRequest) (*gs.AuthResponse, error)
	Login(ctx context.Context, phoneOrEmail, password string) (*gs.AuthResponse, error)
	Logout(ctx context.Context) error
	RequestVerification(ctx context.Context, phone bool) error
	VerifyEmail(ctx context.Context, token string) (*gs.AuthResponse, error)
	VerifyPhone(ctx context.Context, code string) (*gs.AuthResponse, error)
	ForgotPassword(ctx context.Context, phoneOrEmail string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context) (*models.PublicUser, error)
	Deactivate(ctx context.Context) error
	Reactivate(ctx context.Context, phoneOrEmail, password string) (*models.PublicUser, error)

	Upload(ctx context.Context, req *gs.UploadDocumentRequest) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	Share(ctx context.Context, connectionID, recipientID string, docIDs []string) (*services.ShareResult, error)
	SharedWithMe(ctx context.Context, connectionID string) ([]*models.Document, error)
	View(ctx context.Context, docID, connectionID string) (*services.ViewResult, error)
	UpdateShareStatus(ctx context.Context, docID string, status models.ShareStatus) (*models.Share, error)
	Revoke(ctx context.Context, docID, recipientID string) (int64, error)
	Delete(ctx context.Context, docID string) error
}
