package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// invoker is the part of *grpc.ClientConn the client needs.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	rpc         invoker

	mu                sync.Mutex
	accessToken       string
	refreshToken      string
	verificationToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// bearer returns the token to present: the access token once logged in,
// otherwise the verification token of an unverified account.
func (s *GRPCClient) bearer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken != "" {
		return s.accessToken
	}
	return s.verificationToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	ctx = withAccessToken(ctx, s.bearer())

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || method == gs.FullMethod("RefreshToken") {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	s.mu.Lock()
	refreshToken := s.refreshToken
	s.mu.Unlock()
	if refreshToken == "" {
		return err
	}

	var pair services.TokenPair
	if rerr := s.rpc.Invoke(ctx, gs.FullMethod("RefreshToken"), &gs.RefreshTokenRequest{RefreshToken: refreshToken}, &pair); rerr != nil {
		return rerr
	}
	s.setTokens(&pair)

	// Tokens rotated, retry with the new access token.
	ctx = withAccessToken(ctx, pair.AccessToken)
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewDocVaultClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(gs.CodecName)),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.rpc = conn
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, name string, req, resp any) error {
	if err := s.rpc.Invoke(ctx, gs.FullMethod(name), req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) setTokens(p *services.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = p.AccessToken
	s.refreshToken = p.RefreshToken
	s.verificationToken = ""
}

// remember stores whatever credentials an auth response carries.
func (s *GRPCClient) remember(r *gs.AuthResponse) {
	if r.Tokens != nil {
		s.setTokens(r.Tokens)
		return
	}
	if r.VerificationToken != "" {
		s.mu.Lock()
		s.verificationToken = r.VerificationToken
		s.mu.Unlock()
	}
}

func (s *GRPCClient) clearTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken, s.verificationToken = "", "", ""
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var resp gs.PingResponse
	if err := s.call(ctx, "Ping", &gs.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, req *gs.RegisterRequest) (*gs.AuthResponse, error) {
	var resp gs.AuthResponse
	if err := s.call(ctx, "Register", req, &resp); err != nil {
		return nil, err
	}
	s.remember(&resp)
	return &resp, nil
}

func (s *GRPCClient) Login(ctx context.Context, phoneOrEmail, password string) (*gs.AuthResponse, error) {
	var resp gs.AuthResponse
	if err := s.call(ctx, "Login", &gs.LoginRequest{PhoneOrEmail: phoneOrEmail, Password: password}, &resp); err != nil {
		return nil, err
	}
	s.remember(&resp)
	return &resp, nil
}

// Logout revokes the current session on the server and forgets all tokens.
// Tokens are dropped locally even when the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.mu.Unlock()
	if refreshToken == "" {
		s.clearTokens()
		return ErrNotLoggedIn
	}

	err := s.call(ctx, "Logout", &gs.LogoutRequest{RefreshToken: refreshToken}, &gs.Empty{})
	s.clearTokens()
	return err
}

func (s *GRPCClient) RequestVerification(ctx context.Context, phone bool) error {
	method := "RequestEmailVerification"
	if phone {
		method = "RequestPhoneVerification"
	}
	return s.call(ctx, method, &gs.Empty{}, &gs.Empty{})
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) (*gs.AuthResponse, error) {
	var resp gs.AuthResponse
	if err := s.call(ctx, "VerifyEmail", &gs.TokenRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	s.remember(&resp)
	return &resp, nil
}

func (s *GRPCClient) VerifyPhone(ctx context.Context, code string) (*gs.AuthResponse, error) {
	var resp gs.AuthResponse
	if err := s.call(ctx, "VerifyPhone", &gs.TokenRequest{Token: code}, &resp); err != nil {
		return nil, err
	}
	s.remember(&resp)
	return &resp, nil
}

func (s *GRPCClient) ForgotPassword(ctx context.Context, phoneOrEmail string) error {
	return s.call(ctx, "ForgotPassword", &gs.ForgotPasswordRequest{PhoneOrEmail: phoneOrEmail}, &gs.Empty{})
}

func (s *GRPCClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.call(ctx, "ResetPassword", &gs.ResetPasswordRequest{Token: token, NewPassword: newPassword}, &gs.Empty{})
}

func (s *GRPCClient) Me(ctx context.Context) (*models.PublicUser, error) {
	var resp gs.UserResponse
	if err := s.call(ctx, "GetMe", &gs.Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Deactivate switches the account off. The server ends every session, so
// local tokens are dropped on success.
func (s *GRPCClient) Deactivate(ctx context.Context) error {
	if err := s.call(ctx, "DeactivateAccount", &gs.Empty{}, &gs.Empty{}); err != nil {
		return err
	}
	s.clearTokens()
	return nil
}

func (s *GRPCClient) Reactivate(ctx context.Context, phoneOrEmail, password string) (*models.PublicUser, error) {
	var resp gs.UserResponse
	req := &gs.LoginRequest{PhoneOrEmail: phoneOrEmail, Password: password}
	if err := s.call(ctx, "ReactivateAccount", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (s *GRPCClient) Upload(ctx context.Context, req *gs.UploadDocumentRequest) (*models.Document, error) {
	var resp gs.DocumentResponse
	if err := s.call(ctx, "UploadDocument", req, &resp); err != nil {
		return nil, err
	}
	return resp.Document, nil
}

func (s *GRPCClient) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	var resp gs.DocumentsResponse
	if err := s.call(ctx, "ListDocuments", &gs.Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (s *GRPCClient) Share(ctx context.Context, connectionID, recipientID string, docIDs []string) (*services.ShareResult, error) {
	req := &gs.ShareDocumentsRequest{ConnectionID: connectionID, RecipientID: recipientID, DocumentIDs: docIDs}
	var resp services.ShareResult
	if err := s.call(ctx, "ShareDocuments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) SharedWithMe(ctx context.Context, connectionID string) ([]*models.Document, error) {
	var resp gs.DocumentsResponse
	if err := s.call(ctx, "GetSharedDocuments", &gs.SharedDocumentsRequest{ConnectionID: connectionID}, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (s *GRPCClient) View(ctx context.Context, docID, connectionID string) (*services.ViewResult, error) {
	var resp services.ViewResult
	if err := s.call(ctx, "ViewDocument", &gs.ViewDocumentRequest{DocumentID: docID, ConnectionID: connectionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) UpdateShareStatus(ctx context.Context, docID string, st models.ShareStatus) (*models.Share, error) {
	var resp gs.ShareResponse
	if err := s.call(ctx, "UpdateShareStatus", &gs.UpdateShareStatusRequest{DocumentID: docID, Status: string(st)}, &resp); err != nil {
		return nil, err
	}
	return resp.Share, nil
}

func (s *GRPCClient) Revoke(ctx context.Context, docID, recipientID string) (int64, error) {
	var resp gs.CountResponse
	if err := s.call(ctx, "RevokeShare", &gs.RevokeShareRequest{DocumentID: docID, RecipientID: recipientID}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (s *GRPCClient) Delete(ctx context.Context, docID string) error {
	return s.call(ctx, "DeleteDocument", &gs.DocumentRequest{DocumentID: docID}, &gs.Empty{})
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return errors.New(st.Message())
	}
}
