// Package tokens issues and verifies the signed JWTs used for sessions,
// contact verification and password reset. Every kind is signed with its
// own HMAC secret, so a token of one kind can never pass as another.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind is the tokenType claim.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

// Class is the coarse "type" claim.
type Class string

const (
	ClassStandard      Class = "standard"
	ClassVerification  Class = "verification"
	ClassPasswordReset Class = "password_reset"
)

const (
	DefaultAccessTTL            = 15 * time.Minute
	DefaultRefreshTTL           = 7 * 24 * time.Hour
	DefaultVerificationTTL      = time.Hour
	DefaultShortVerificationTTL = 5 * time.Minute
	DefaultResetTTL             = 3 * 24 * time.Hour
)

func (k Kind) class() Class {
	switch k {
	case KindVerification:
		return ClassVerification
	case KindReset:
		return ClassPasswordReset
	default:
		return ClassStandard
	}
}

// Claims is the payload carried by every token.
type Claims struct {
	UserID       string      `json:"userId"`
	TokenType    Kind        `json:"tokenType"`
	Type         Class       `json:"type"`
	Nonce        string      `json:"nonce"`
	Role         models.Role `json:"role"`
	PhoneOrEmail string      `json:"phoneOrEmail,omitempty"`
	jwt.RegisteredClaims
}

// Subject is what a token is issued for.
type Subject struct {
	UserID       string
	Role         models.Role
	PhoneOrEmail string
}

// Secrets holds one signing secret per token kind.
type Secrets struct {
	Access       string
	Refresh      string
	Verification string
	Reset        string
}

// Issuer signs and verifies tokens. It is safe for concurrent use.
type Issuer struct {
	keys map[Kind][]byte
	now  func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer fails when a secret is missing or two kinds share a secret.
func NewIssuer(s Secrets, opts ...Option) (*Issuer, error) {
	keys := map[Kind]string{
		KindAccess:       s.Access,
		KindRefresh:      s.Refresh,
		KindVerification: s.Verification,
		KindReset:        s.Reset,
	}

	seen := make(map[string]Kind, len(keys))
	i := &Issuer{keys: make(map[Kind][]byte, len(keys)), now: time.Now}
	for kind, secret := range keys {
		if secret == "" {
			return nil, fmt.Errorf("token secret not set for %s tokens", kind)
		}
		if other, ok := seen[secret]; ok {
			return nil, fmt.Errorf("%s and %s tokens must use distinct secrets", other, kind)
		}
		seen[secret] = kind
		i.keys[kind] = []byte(secret)
	}

	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue signs a token of the given kind valid for ttl.
func (i *Issuer) Issue(kind Kind, sub Subject, ttl time.Duration) (string, *Claims, error) {
	key, ok := i.keys[kind]
	if !ok {
		return "", nil, common.ErrInvalidTokenType
	}
	if sub.UserID == "" {
		return "", nil, errors.New("token subject is empty")
	}

	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", nil, err
	}

	role := sub.Role
	if role == "" {
		role = models.RoleUser
	}

	now := i.now()
	claims := &Claims{
		UserID:    sub.UserID,
		TokenType: kind,
		Type:      kind.class(),
		Nonce:     nonce,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	switch kind {
	case KindVerification:
		claims.PhoneOrEmail = sub.PhoneOrEmail
	case KindReset:
		if sub.PhoneOrEmail == "" {
			return "", nil, errors.New("phoneOrEmail required for password reset token")
		}
		claims.PhoneOrEmail = sub.PhoneOrEmail
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks token against the secret of the expected kind. Errors are
// one of common.ErrWrongTokenType, common.ErrTokenExpired or
// common.ErrInvalidToken.
func (i *Issuer) Verify(token string, expected Kind) (*Claims, error) {
	key, ok := i.keys[expected]
	if !ok {
		return nil, common.ErrInvalidTokenType
	}

	unverified := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return nil, common.ErrInvalidToken
	}
	if unverified.TokenType != expected {
		return nil, common.ErrWrongTokenType
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if claims.UserID == "" || claims.TokenType != expected {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
