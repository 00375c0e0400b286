// Package common defines shared constants and sentinel errors used across
// the docvault server. Callers should use errors.Is to match these values
// and KindOf to classify them at the transport boundary.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrValidation         = errors.New("validation error")
	ErrMissingCredentials = errors.New("phone/email and password are required")
	ErrInvalidFormat      = errors.New("invalid phone number or email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long and contain at least one uppercase letter, one number, and one special character")

	// Authentication errors.
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountNotFound      = errors.New("no account found with this phone number or email")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrInvalidOldPassword   = errors.New("invalid old password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrWrongTokenType       = errors.New("wrong token type")
	ErrInvalidTokenType     = errors.New("invalid token type")
	ErrUserMismatch         = errors.New("invalid token: user mismatch")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrInvalidResetToken    = errors.New("invalid reset token")
	ErrInvalidVerification  = errors.New("invalid verification token")
	ErrAccountBlocked       = errors.New("account is blocked")
	ErrAccountDeactivated   = errors.New("account is deactivated")
	ErrContactMismatch      = errors.New("invalid current phone/email")
	ErrAlreadyVerified      = errors.New("user is already verified")
	ErrVerificationRequired = errors.New("phone/email verification required")

	// Authorization errors.
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotConnected  = errors.New("users are not connected")

	// Document share errors.
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentExists      = errors.New("verification document of this type already exists")
	ErrNotShared           = errors.New("document is not shared with this user")
	ErrPendingAcceptance   = errors.New("share is pending acceptance")
	ErrShareExpired        = errors.New("share has expired")
	ErrShareRevoked        = errors.New("share has been revoked")
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// Conflict errors.
	ErrDuplicateUser = errors.New("user with this phone/email already exists")

	// Rate-limit errors.
	ErrAccountLocked  = errors.New("account is locked, please try again later")
	ErrCooldownActive = errors.New("please wait before requesting another verification")
	ErrRateLimited    = errors.New("too many requests")

	// Dependency errors.
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
	ErrStorageUnavailable         = errors.New("storage unavailable")
)

// Kind groups sentinel errors into the categories the transport layer
// translates into client-facing responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

var kinds = map[Kind][]error{
	KindValidation: {
		ErrValidation, ErrMissingCredentials, ErrInvalidFormat, ErrWeakPassword,
		ErrUnsupportedFileType, ErrContactMismatch,
	},
	KindAuthentication: {
		ErrInvalidPassword, ErrInvalidOldPassword, ErrInvalidToken, ErrTokenExpired,
		ErrWrongTokenType, ErrInvalidTokenType, ErrUserMismatch, ErrInvalidRefreshToken,
		ErrInvalidResetToken, ErrInvalidVerification, ErrAccountBlocked, ErrAccountDeactivated,
		ErrVerificationRequired,
	},
	KindAuthorization: {
		ErrNotAuthorized, ErrNotConnected, ErrNotShared, ErrPendingAcceptance,
		ErrShareExpired, ErrShareRevoked,
	},
	KindNotFound: {
		ErrorNotFound, ErrUserNotFound, ErrAccountNotFound, ErrDocumentNotFound,
	},
	KindConflict: {
		ErrorAlreadyExists, ErrDuplicateUser, ErrDocumentExists, ErrAlreadyVerified,
	},
	KindRateLimit: {
		ErrAccountLocked, ErrCooldownActive, ErrRateLimited,
	},
	KindDependency: {
		ErrorInternal, ErrNotificationDeliveryFailed, ErrStorageUnavailable,
	},
}

// KindOf reports the category of err. Errors that match no sentinel are
// KindUnknown and must be treated as internal failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for k, list := range kinds {
		for _, target := range list {
			if errors.Is(err, target) {
				return k
			}
		}
	}
	return KindUnknown
}
