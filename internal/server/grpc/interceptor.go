package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/tokens"
)

type ctxKey string

const claimsKey ctxKey = "claims"

var (
	accessOnly       = []tokens.Kind{tokens.KindAccess}
	accessOrVerifier = []tokens.Kind{tokens.KindAccess, tokens.KindVerification}
)

// methodScopes lists the token kinds accepted per method. Methods absent
// from the map are public. Unverified users only hold a verification token,
// so the verification endpoints accept it as well.
var methodScopes = map[string][]tokens.Kind{
	FullMethod("Logout"):                   accessOnly,
	FullMethod("ChangePassword"):           accessOnly,
	FullMethod("RequestEmailVerification"): accessOrVerifier,
	FullMethod("RequestPhoneVerification"): accessOrVerifier,
	FullMethod("VerifyPhone"):              accessOrVerifier,
	FullMethod("VerificationStatus"):       accessOrVerifier,
	FullMethod("ChangePhoneOrEmail"):       accessOnly,
	FullMethod("ListSessions"):             accessOnly,
	FullMethod("RevokeAllSessions"):        accessOnly,
	FullMethod("GetMe"):                    accessOnly,
	FullMethod("DeactivateAccount"):        accessOnly,
	FullMethod("UploadDocument"):           accessOnly,
	FullMethod("ListDocuments"):            accessOnly,
	FullMethod("ShareDocuments"):           accessOnly,
	FullMethod("GetSharedDocuments"):       accessOnly,
	FullMethod("ViewDocument"):             accessOnly,
	FullMethod("UpdateShareStatus"):        accessOnly,
	FullMethod("RevokeShare"):              accessOnly,
	FullMethod("DeleteDocument"):           accessOnly,
}

// authInterceptor verifies the bearer token of scoped methods and stores
// its claims in the context.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	kinds, ok := methodScopes[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.verifyAny(token, kinds)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

func (s *GRPCServer) verifyAny(token string, kinds []tokens.Kind) (*tokens.Claims, error) {
	var err error
	for _, k := range kinds {
		var claims *tokens.Claims
		claims, err = s.tokens.Verify(token, k)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, common.ErrWrongTokenType) {
			return nil, err
		}
	}
	return nil, err
}

// loggingInterceptor records method, outcome and latency of every call.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error(ctx, "request failed", args...)
	} else {
		s.logger.Info(ctx, "request", args...)
	}
	return resp, err
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 && v[0] != "" {
		return v[0]
	}
	if v := md.Get(common.AuthorizationHeaderName); len(v) > 0 {
		const prefix = "bearer "
		if len(v[0]) > len(prefix) && strings.EqualFold(v[0][:len(prefix)], prefix) {
			return strings.TrimSpace(v[0][len(prefix):])
		}
	}
	return ""
}

func claimsFrom(ctx context.Context) (*tokens.Claims, error) {
	c, ok := ctx.Value(claimsKey).(*tokens.Claims)
	if !ok || c == nil {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return c, nil
}
