package grpc

import (
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/services"
)

// Empty is used by methods without parameters or results.
type Empty struct{}

type RegisterRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DateOfBirth  string `json:"dateOfBirth"` // YYYY-MM-DD
	Gender       string `json:"gender"`
	PhoneOrEmail string `json:"phoneOrEmail"`
	Password     string `json:"password"`
}

type LoginRequest struct {
	PhoneOrEmail string `json:"phoneOrEmail"`
	Password     string `json:"password"`
}

type AuthResponse struct {
	User              *models.PublicUser  `json:"user"`
	Tokens            *services.TokenPair `json:"tokens,omitempty"`
	VerificationToken string              `json:"verificationToken,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	PhoneOrEmail string `json:"phoneOrEmail"`
}

type ValidateResetTokenResponse struct {
	Valid bool `json:"valid"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePhoneOrEmailRequest struct {
	Current string `json:"currentPhoneOrEmail"`
	New     string `json:"newPhoneOrEmail"`
}

type UserResponse struct {
	User *models.PublicUser `json:"user"`
}

type SessionsResponse struct {
	Sessions []*services.Session `json:"sessions"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type UploadDocumentRequest struct {
	Name         string `json:"name"`
	DocumentType string `json:"documentType"`
	FileType     string `json:"fileType"`
	ContentType  string `json:"contentType"`
	Content      []byte `json:"content"`
}

type DocumentResponse struct {
	Document *models.Document `json:"document"`
}

type DocumentsResponse struct {
	Documents []*models.Document `json:"documents"`
}

type ShareDocumentsRequest struct {
	ConnectionID string   `json:"connectionId"`
	DocumentIDs  []string `json:"documentIds"`
	RecipientID  string   `json:"recipientId"`
}

type SharedDocumentsRequest struct {
	ConnectionID string `json:"connectionId,omitempty"`
}

type ViewDocumentRequest struct {
	DocumentID   string `json:"documentId"`
	ConnectionID string `json:"connectionId,omitempty"`
}

type UpdateShareStatusRequest struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

type ShareResponse struct {
	Share *models.Share `json:"share"`
}

type RevokeShareRequest struct {
	DocumentID  string `json:"documentId"`
	RecipientID string `json:"recipientId,omitempty"`
}

type DocumentRequest struct {
	DocumentID string `json:"documentId"`
}

type PingResponse struct {
	Status string `json:"status"`
}
