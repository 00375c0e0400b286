package grpc

import (
	"context"
	"io"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/grpc"
)

const ServiceName = "docvault.v1.DocVault"

// UserService is the part of services.UserService exposed over gRPC.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, phoneOrEmail, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	RequestEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, token string) (*services.AuthResult, error)
	RequestPhoneVerification(ctx context.Context, userID string) error
	VerifyPhone(ctx context.Context, userID, token string) (*services.AuthResult, error)
	ForgotPassword(ctx context.Context, phoneOrEmail string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePhoneOrEmail(ctx context.Context, userID, current, next string) (*models.PublicUser, error)
	VerificationStatus(ctx context.Context, userID string) (*services.VerificationStatus, error)
	ListSessions(ctx context.Context, userID string) ([]*services.Session, error)
	RevokeAllSessions(ctx context.Context, userID string) (int64, error)
	GetUser(ctx context.Context, userID string) (*models.PublicUser, error)
	DeactivateAccount(ctx context.Context, userID string) error
	ReactivateAccount(ctx context.Context, phoneOrEmail, password string) (*models.PublicUser, error)
}

// DocumentService is the part of services.DocumentService exposed over gRPC.
type DocumentService interface {
	Upload(ctx context.Context, ownerID string, in services.UploadInput, body io.Reader) (*models.Document, error)
	ListDocuments(ctx context.Context, ownerID string) ([]*models.Document, error)
	Share(ctx context.Context, ownerID, connectionID string, docIDs []string, recipientID string) (*services.ShareResult, error)
	GetSharedFor(ctx context.Context, viewerID, connectionID string) ([]*models.Document, error)
	View(ctx context.Context, docID, viewerID, connectionID string) (*services.ViewResult, error)
	UpdateStatus(ctx context.Context, docID, viewerID string, status models.ShareStatus) (*models.Share, error)
	Revoke(ctx context.Context, docID, ownerID, recipientID string) (int64, error)
	DeleteDocument(ctx context.Context, docID, ownerID string) error
}

// DocVaultServer is the handler set registered under ServiceName.
type DocVaultServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*services.TokenPair, error)
	Logout(context.Context, *LogoutRequest) (*Empty, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	RequestEmailVerification(context.Context, *Empty) (*Empty, error)
	VerifyEmail(context.Context, *TokenRequest) (*AuthResponse, error)
	RequestPhoneVerification(context.Context, *Empty) (*Empty, error)
	VerifyPhone(context.Context, *TokenRequest) (*AuthResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*Empty, error)
	ValidateResetToken(context.Context, *TokenRequest) (*ValidateResetTokenResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	ChangePhoneOrEmail(context.Context, *ChangePhoneOrEmailRequest) (*UserResponse, error)
	VerificationStatus(context.Context, *Empty) (*services.VerificationStatus, error)
	ListSessions(context.Context, *Empty) (*SessionsResponse, error)
	RevokeAllSessions(context.Context, *Empty) (*CountResponse, error)
	GetMe(context.Context, *Empty) (*UserResponse, error)
	DeactivateAccount(context.Context, *Empty) (*Empty, error)
	ReactivateAccount(context.Context, *LoginRequest) (*UserResponse, error)
	UploadDocument(context.Context, *UploadDocumentRequest) (*DocumentResponse, error)
	ListDocuments(context.Context, *Empty) (*DocumentsResponse, error)
	ShareDocuments(context.Context, *ShareDocumentsRequest) (*services.ShareResult, error)
	GetSharedDocuments(context.Context, *SharedDocumentsRequest) (*DocumentsResponse, error)
	ViewDocument(context.Context, *ViewDocumentRequest) (*services.ViewResult, error)
	UpdateShareStatus(context.Context, *UpdateShareStatusRequest) (*ShareResponse, error)
	RevokeShare(context.Context, *RevokeShareRequest) (*CountResponse, error)
	DeleteDocument(context.Context, *DocumentRequest) (*Empty, error)
	Ping(context.Context, *Empty) (*PingResponse, error)
}

// FullMethod returns the gRPC method path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed handler to grpc.MethodDesc, decoding with whatever
// codec the call negotiated.
func unary[Req, Resp any](name string, fn func(DocVaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(DocVaultServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocVaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", DocVaultServer.Register),
		unary("Login", DocVaultServer.Login),
		unary("RefreshToken", DocVaultServer.RefreshToken),
		unary("Logout", DocVaultServer.Logout),
		unary("ChangePassword", DocVaultServer.ChangePassword),
		unary("RequestEmailVerification", DocVaultServer.RequestEmailVerification),
		unary("VerifyEmail", DocVaultServer.VerifyEmail),
		unary("RequestPhoneVerification", DocVaultServer.RequestPhoneVerification),
		unary("VerifyPhone", DocVaultServer.VerifyPhone),
		unary("ForgotPassword", DocVaultServer.ForgotPassword),
		unary("ValidateResetToken", DocVaultServer.ValidateResetToken),
		unary("ResetPassword", DocVaultServer.ResetPassword),
		unary("ChangePhoneOrEmail", DocVaultServer.ChangePhoneOrEmail),
		unary("VerificationStatus", DocVaultServer.VerificationStatus),
		unary("ListSessions", DocVaultServer.ListSessions),
		unary("RevokeAllSessions", DocVaultServer.RevokeAllSessions),
		unary("GetMe", DocVaultServer.GetMe),
		unary("DeactivateAccount", DocVaultServer.DeactivateAccount),
		unary("ReactivateAccount", DocVaultServer.ReactivateAccount),
		unary("UploadDocument", DocVaultServer.UploadDocument),
		unary("ListDocuments", DocVaultServer.ListDocuments),
		unary("ShareDocuments", DocVaultServer.ShareDocuments),
		unary("GetSharedDocuments", DocVaultServer.GetSharedDocuments),
		unary("ViewDocument", DocVaultServer.ViewDocument),
		unary("UpdateShareStatus", DocVaultServer.UpdateShareStatus),
		unary("RevokeShare", DocVaultServer.RevokeShare),
		unary("DeleteDocument", DocVaultServer.DeleteDocument),
		unary("Ping", DocVaultServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docvault.v1",
}
