package grpc

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
)

const dateLayout = "2006-01-02"

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", common.ErrValidation))
	}

	res, err := s.users.Register(ctx, services.RegisterInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  dob,
		Gender:       models.Gender(req.Gender),
		PhoneOrEmail: req.PhoneOrEmail,
		Password:     req.Password,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "registered", "user_id", res.User.ID)
	return authResponse(res), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	res, err := s.users.Login(ctx, req.PhoneOrEmail, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return authResponse(res), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (*services.TokenPair, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return pair, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.users.Logout(ctx, userID, req.RefreshToken)
	})
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.users.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword)
	})
}

func (s *GRPCServer) RequestEmailVerification(ctx context.Context, _ *Empty) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.users.RequestEmailVerification(ctx, userID)
	})
}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *TokenRequest) (*AuthResponse, error) {
	res, err := s.users.VerifyEmail(ctx, req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	return authResponse(res), nil
}

func (s *GRPCServer) RequestPhoneVerification(ctx context.Context, _ *Empty) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.users.RequestPhoneVerification(ctx, userID)
	})
}

func (s *GRPCServer) VerifyPhone(ctx context.Context, req *TokenRequest) (*AuthResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.users.VerifyPhone(ctx, claims.UserID, req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	return authResponse(res), nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (*Empty, error) {
	if err := s.users.ForgotPassword(ctx, req.PhoneOrEmail); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) ValidateResetToken(ctx context.Context, req *TokenRequest) (*ValidateResetTokenResponse, error) {
	if err := s.users.ValidateResetToken(ctx, req.Token); err != nil {
		return nil, toStatus(err)
	}
	return &ValidateResetTokenResponse{Valid: true}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Empty, error) {
	if err := s.users.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) ChangePhoneOrEmail(ctx context.Context, req *ChangePhoneOrEmailRequest) (*UserResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.ChangePhoneOrEmail(ctx, claims.UserID, req.Current, req.New)
	if err != nil {
		return nil, toStatus(err)
	}
	return &UserResponse{User: u}, nil
}

func (s *GRPCServer) VerificationStatus(ctx context.Context, _ *Empty) (*services.VerificationStatus, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.users.VerificationStatus(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return st, nil
}

func (s *GRPCServer) ListSessions(ctx context.Context, _ *Empty) (*SessionsResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.users.ListSessions(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SessionsResponse{Sessions: list}, nil
}

func (s *GRPCServer) RevokeAllSessions(ctx context.Context, _ *Empty) (*CountResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.users.RevokeAllSessions(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CountResponse{Count: n}, nil
}

func (s *GRPCServer) GetMe(ctx context.Context, _ *Empty) (*UserResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &UserResponse{User: u}, nil
}

func (s *GRPCServer) DeactivateAccount(ctx context.Context, _ *Empty) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.users.DeactivateAccount(ctx, userID)
	})
}

// ReactivateAccount is public: a deactivated account holds no session.
func (s *GRPCServer) ReactivateAccount(ctx context.Context, req *LoginRequest) (*UserResponse, error) {
	u, err := s.users.ReactivateAccount(ctx, req.PhoneOrEmail, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info(ctx, "account reactivated", "user_id", u.ID)
	return &UserResponse{User: u}, nil
}

func (s *GRPCServer) UploadDocument(ctx context.Context, req *UploadDocumentRequest) (*DocumentResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Upload(ctx, claims.UserID, services.UploadInput{
		Name:         req.Name,
		DocumentType: models.DocumentType(req.DocumentType),
		FileType:     models.FileType(req.FileType),
		ContentType:  req.ContentType,
		Size:         int64(len(req.Content)),
	}, bytes.NewReader(req.Content))
	if err != nil {
		return nil, toStatus(err)
	}
	return &DocumentResponse{Document: doc}, nil
}

func (s *GRPCServer) ListDocuments(ctx context.Context, _ *Empty) (*DocumentsResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListDocuments(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DocumentsResponse{Documents: docs}, nil
}

func (s *GRPCServer) ShareDocuments(ctx context.Context, req *ShareDocumentsRequest) (*services.ShareResult, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.docs.Share(ctx, claims.UserID, req.ConnectionID, req.DocumentIDs, req.RecipientID)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *GRPCServer) GetSharedDocuments(ctx context.Context, req *SharedDocumentsRequest) (*DocumentsResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.GetSharedFor(ctx, claims.UserID, req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DocumentsResponse{Documents: docs}, nil
}

func (s *GRPCServer) ViewDocument(ctx context.Context, req *ViewDocumentRequest) (*services.ViewResult, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.docs.View(ctx, req.DocumentID, claims.UserID, req.ConnectionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *GRPCServer) UpdateShareStatus(ctx context.Context, req *UpdateShareStatusRequest) (*ShareResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := s.docs.UpdateStatus(ctx, req.DocumentID, claims.UserID, models.ShareStatus(req.Status))
	if err != nil {
		return nil, toStatus(err)
	}
	return &ShareResponse{Share: sh}, nil
}

func (s *GRPCServer) RevokeShare(ctx context.Context, req *RevokeShareRequest) (*CountResponse, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.docs.Revoke(ctx, req.DocumentID, claims.UserID, req.RecipientID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CountResponse{Count: n}, nil
}

func (s *GRPCServer) DeleteDocument(ctx context.Context, req *DocumentRequest) (*Empty, error) {
	return s.withUser(ctx, func(userID string) error {
		return s.docs.DeleteDocument(ctx, req.DocumentID, userID)
	})
}

func (s *GRPCServer) Ping(context.Context, *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

// withUser runs fn for the authenticated caller of a method without
// results.
func (s *GRPCServer) withUser(ctx context.Context, fn func(userID string) error) (*Empty, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(claims.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func authResponse(r *services.AuthResult) *AuthResponse {
	return &AuthResponse{User: r.User, Tokens: r.Tokens, VerificationToken: r.VerificationToken}
}
