// Package services holds the business logic of the server: the auth
// orchestrator (UserService) and the document share engine
// (DocumentService). Services depend on repositories through
// repomanager and run multi-record changes through dbx.Transactor.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/events"
	"github.com/dmitrijs2005/docvault/internal/server/lockout"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/notify"
	"github.com/dmitrijs2005/docvault/internal/server/password"
	"github.com/dmitrijs2005/docvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/server/tokens"
	"github.com/dmitrijs2005/docvault/internal/server/validation"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by login and verification flows. Exactly one of
// Tokens and VerificationToken is set.
type AuthResult struct {
	User              *models.PublicUser `json:"user"`
	Tokens            *TokenPair         `json:"tokens,omitempty"`
	VerificationToken string             `json:"verificationToken,omitempty"`
}

// RegisterInput carries the self-service sign-up form.
type RegisterInput struct {
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       models.Gender
	PhoneOrEmail string
	Password     string
}

type VerificationStatus struct {
	HasVerificationToken   bool `json:"hasVerificationToken"`
	IsPhoneOrEmailVerified bool `json:"isPhoneOrEmailVerified"`
	IsVerified             bool `json:"isVerified"`
}

// Session is a persisted refresh token as shown to its owner.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserDeps bundles the collaborators of UserService. Notifier, Limiter,
// Events, Logger and Now are optional.
type UserDeps struct {
	DB       dbx.Transactor
	Repos    repomanager.RepositoryManager
	Tokens   *tokens.Issuer
	Hasher   password.Hasher
	Lockout  *lockout.Guard
	Notifier notify.Dispatcher
	Limiter  ratelimit.Limiter
	Events   events.Publisher
	Logger   logging.Logger
	Now      func() time.Time
}

type UserService struct {
	db       dbx.Transactor
	repos    repomanager.RepositoryManager
	tokens   *tokens.Issuer
	hasher   password.Hasher
	lockout  *lockout.Guard
	notifier notify.Dispatcher
	limiter  ratelimit.Limiter
	events   events.Publisher
	logger   logging.Logger
	now      func() time.Time

	accessTTL            time.Duration
	refreshTTL           time.Duration
	verificationTTL      time.Duration
	shortVerificationTTL time.Duration
	resetTTL             time.Duration
	cooldown             time.Duration
	revokeOnPassword     bool
}

func NewUserService(d UserDeps, cfg *config.Config) *UserService {
	s := &UserService{
		db:       d.DB,
		repos:    d.Repos,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		lockout:  d.Lockout,
		notifier: d.Notifier,
		limiter:  d.Limiter,
		events:   d.Events,
		logger:   d.Logger,
		now:      d.Now,

		accessTTL:            cfg.AccessTokenValidityDuration,
		refreshTTL:           cfg.RefreshTokenValidityDuration,
		verificationTTL:      cfg.VerificationTokenValidityDuration,
		shortVerificationTTL: cfg.ShortVerificationTokenValidityDuration,
		resetTTL:             cfg.ResetTokenValidityDuration,
		cooldown:             cfg.VerificationCooldown,
		revokeOnPassword:     cfg.RevokeSessionsOnPasswordChange,
	}
	if s.lockout == nil {
		s.lockout = lockout.NewGuard(lockout.Config{Threshold: cfg.LockoutThreshold, Window: cfg.LockoutWindow})
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	s.logger = s.logger.With("module", "users")
	if s.notifier == nil {
		s.notifier = notify.NewLogDispatcher(s.logger)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates an unverified account and returns a short-lived
// verification token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	contact := validation.NormalizeContact(in.PhoneOrEmail)
	if contact == "" || in.Password == "" {
		return nil, common.ErrMissingCredentials
	}
	if err := validation.Contact(contact); err != nil {
		return nil, err
	}
	if err := validation.Password(in.Password); err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		DateOfBirth:  in.DateOfBirth,
		Gender:       in.Gender,
		PhoneOrEmail: contact,
		IsActive:     true,
	}
	if err := validation.Profile(user, s.now()); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	user.PasswordHash = hash

	user, err = s.repos.Users(s.db.Conn()).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			return nil, err
		}
		return nil, s.dependency(ctx, "error creating user", err)
	}

	token, err := s.issueVerification(user, s.shortVerificationTTL)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserRegistered, user.ID, user.Public())
	return &AuthResult{User: user.Public(), VerificationToken: token}, nil
}

// Login authenticates by contact and password. Locked accounts are refused
// before the password is looked at.
func (s *UserService) Login(ctx context.Context, phoneOrEmail, pw string) (*AuthResult, error) {
	contact := validation.NormalizeContact(phoneOrEmail)
	if contact == "" || pw == "" {
		return nil, common.ErrMissingCredentials
	}
	if err := validation.Contact(contact); err != nil {
		return nil, err
	}

	users := s.repos.Users(s.db.Conn())
	user, err := users.GetByPhoneOrEmail(ctx, contact)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.dependency(ctx, "error fetching user", err)
	}

	now := s.now()
	if err := s.lockout.Check(user, now); err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(pw, user.PasswordHash)
	if err != nil {
		return nil, s.dependency(ctx, "error verifying password", err)
	}
	if !ok {
		if s.lockout.Failure(user, now) {
			s.logger.Warn(ctx, "account locked", "user_id", user.ID, "until", user.LockUntil)
		}
		if err := users.Update(ctx, user); err != nil {
			return nil, s.dependency(ctx, "error recording failed login", err)
		}
		return nil, common.ErrInvalidPassword
	}

	if err := usable(user); err != nil {
		return nil, err
	}

	s.lockout.Success(user)
	user.LastLogin = &now

	if !user.IsPhoneOrEmailVerified && !user.IsAdmin {
		if err := users.Update(ctx, user); err != nil {
			return nil, s.dependency(ctx, "error updating user", err)
		}
		token, err := s.issueVerification(user, s.shortVerificationTTL)
		if err != nil {
			return nil, err
		}
		return &AuthResult{User: user.Public(), VerificationToken: token}, nil
	}

	var pair *TokenPair
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, s.dependency(ctx, "error completing login", err)
	}

	return &AuthResult{User: user.Public(), Tokens: pair}, nil
}

// RefreshToken rotates a refresh token: the presented one is deleted and a
// new pair issued in the same transaction. A token already rotated by a
// concurrent call is rejected.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, tokens.KindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users(s.db.Conn()).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.dependency(ctx, "error fetching user", err)
	}
	if err := usable(user); err != nil {
		return nil, err
	}

	hash := common.HashToken(refreshToken)
	rec, err := s.repos.RefreshTokens(s.db.Conn()).Find(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.dependency(ctx, "error searching refresh token", err)
	}
	if rec.UserID != user.ID {
		return nil, common.ErrInvalidRefreshToken
	}

	var pair *TokenPair
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repos.RefreshTokens(tx).Delete(ctx, hash)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if n == 0 {
			return common.ErrInvalidRefreshToken
		}
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, s.dependency(ctx, "error rotating refresh token", err)
	}
	return pair, nil
}

// Logout deletes the given refresh session of userID. Unknown tokens are
// not an error.
func (s *UserService) Logout(ctx context.Context, userID, refreshToken string) error {
	repo := s.repos.RefreshTokens(s.db.Conn())
	hash := common.HashToken(refreshToken)

	rec, err := repo.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.dependency(ctx, "error searching refresh token", err)
	}
	if rec.UserID != userID {
		return common.ErrNotAuthorized
	}

	if _, err := repo.Delete(ctx, hash); err != nil {
		return s.dependency(ctx, "error deleting refresh token", err)
	}
	return nil
}

// ChangePassword replaces the password of userID. Whether other sessions
// survive is decided by RevokeSessionsOnPasswordChange.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return s.dependency(ctx, "error verifying password", err)
	}
	if !ok {
		return common.ErrInvalidOldPassword
	}
	if err := validation.Password(newPassword); err != nil {
		return err
	}

	if err := s.setPassword(user, newPassword); err != nil {
		return s.dependency(ctx, "error hashing password", err)
	}
	return s.savePassword(ctx, user)
}

// RequestEmailVerification sends a fresh verification token to the user's
// contact, at most once per cooldown.
func (s *UserService) RequestEmailVerification(ctx context.Context, userID string) error {
	return s.requestVerification(ctx, userID, s.verificationTTL, notify.PurposeEmailVerification)
}

// RequestPhoneVerification is the SMS flavour with a short-lived token.
func (s *UserService) RequestPhoneVerification(ctx context.Context, userID string) error {
	return s.requestVerification(ctx, userID, s.shortVerificationTTL, notify.PurposePhoneVerification)
}

func (s *UserService) requestVerification(ctx context.Context, userID string, ttl time.Duration, purpose notify.Purpose) error {
	users := s.repos.Users(s.db.Conn())
	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return err
	}
	if user.IsPhoneOrEmailVerified {
		return common.ErrAlreadyVerified
	}

	isEmail := validation.IsEmail(user.PhoneOrEmail)
	if purpose == notify.PurposePhoneVerification && isEmail {
		return common.ErrInvalidFormat
	}

	now := s.now()
	if user.LastVerificationSentAt != nil && now.Sub(*user.LastVerificationSentAt) < s.cooldown {
		return common.ErrCooldownActive
	}

	token, err := s.issueVerification(user, ttl)
	if err != nil {
		return err
	}
	hash := common.HashToken(token)
	user.VerificationTokenHash = &hash
	user.LastVerificationSentAt = &now
	if err := users.Update(ctx, user); err != nil {
		return s.dependency(ctx, "error storing verification token", err)
	}

	return s.notifier.Send(ctx, notify.Message{
		Destination: user.PhoneOrEmail,
		Token:       token,
		Purpose:     purpose,
		Channel:     channelFor(isEmail),
	})
}

// VerifyEmail completes contact verification from a verification token and
// starts a session. Verifying an already verified account just issues a
// fresh pair.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*AuthResult, error) {
	claims, err := s.verifyScoped(token, tokens.KindVerification)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, s.db.Conn(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if claims.PhoneOrEmail != user.PhoneOrEmail {
		return nil, common.ErrUserMismatch
	}

	return s.completeVerification(ctx, user)
}

// VerifyPhone checks token against the one last sent to userID.
func (s *UserService) VerifyPhone(ctx context.Context, userID, token string) (*AuthResult, error) {
	claims, err := s.verifyScoped(token, tokens.KindVerification)
	if err != nil {
		return nil, err
	}
	if claims.UserID != userID {
		return nil, common.ErrUserMismatch
	}

	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return nil, err
	}
	if claims.PhoneOrEmail != user.PhoneOrEmail {
		return nil, common.ErrUserMismatch
	}
	if !user.IsPhoneOrEmailVerified {
		if user.VerificationTokenHash == nil || *user.VerificationTokenHash != common.HashToken(token) {
			return nil, common.ErrInvalidVerification
		}
	}

	return s.completeVerification(ctx, user)
}

func (s *UserService) completeVerification(ctx context.Context, user *models.User) (*AuthResult, error) {
	if err := usable(user); err != nil {
		return nil, err
	}
	already := user.IsPhoneOrEmailVerified

	var pair *TokenPair
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if !already {
			user.IsPhoneOrEmailVerified = true
			user.VerificationTokenHash = nil
			if err := s.repos.Users(tx).Update(ctx, user); err != nil {
				return fmt.Errorf("error updating user: %w", err)
			}
		}
		var err error
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, s.dependency(ctx, "error completing verification", err)
	}

	if !already {
		s.publish(ctx, events.UserVerified, user.ID, user.Public())
	}
	return &AuthResult{User: user.Public(), Tokens: pair}, nil
}

// ForgotPassword sends a password reset token over the channel matching
// the contact. Requests are throttled per contact.
func (s *UserService) ForgotPassword(ctx context.Context, phoneOrEmail string) error {
	contact := validation.NormalizeContact(phoneOrEmail)
	if contact == "" {
		return common.ErrMissingCredentials
	}
	if err := validation.Contact(contact); err != nil {
		return err
	}
	if err := s.limiter.Allow(ctx, contact); err != nil {
		if errors.Is(err, common.ErrRateLimited) {
			return err
		}
		return s.dependency(ctx, "error checking rate limit", err)
	}

	users := s.repos.Users(s.db.Conn())
	user, err := users.GetByPhoneOrEmail(ctx, contact)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountNotFound
		}
		return s.dependency(ctx, "error fetching user", err)
	}

	token, claims, err := s.tokens.Issue(tokens.KindReset, subjectOf(user), s.resetTTL)
	if err != nil {
		return s.dependency(ctx, "error issuing reset token", err)
	}
	hash := common.HashToken(token)
	expires := claims.ExpiresAt.Time
	user.ResetPasswordTokenHash = &hash
	user.ResetPasswordExpires = &expires
	if err := users.Update(ctx, user); err != nil {
		return s.dependency(ctx, "error storing reset token", err)
	}

	return s.notifier.Send(ctx, notify.Message{
		Destination: user.PhoneOrEmail,
		Token:       token,
		Purpose:     notify.PurposePasswordReset,
		Channel:     channelFor(validation.IsEmail(user.PhoneOrEmail)),
	})
}

// ValidateResetToken reports whether token can still be used to reset.
func (s *UserService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.resetTarget(ctx, token)
	return err
}

// ResetPassword sets a new password from a reset token. The token is
// single use and the lockout state is cleared.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.resetTarget(ctx, token)
	if err != nil {
		return err
	}
	if err := validation.Password(newPassword); err != nil {
		return err
	}

	if err := s.setPassword(user, newPassword); err != nil {
		return s.dependency(ctx, "error hashing password", err)
	}
	user.ResetPasswordTokenHash = nil
	user.ResetPasswordExpires = nil
	s.lockout.Success(user)

	return s.savePassword(ctx, user)
}

func (s *UserService) resetTarget(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.verifyScoped(token, tokens.KindReset)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, s.db.Conn(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if claims.PhoneOrEmail != user.PhoneOrEmail {
		return nil, common.ErrUserMismatch
	}
	if user.ResetPasswordTokenHash == nil || *user.ResetPasswordTokenHash != common.HashToken(token) {
		return nil, common.ErrInvalidResetToken
	}
	if user.ResetPasswordExpires == nil || !user.ResetPasswordExpires.After(s.now()) {
		return nil, common.ErrInvalidResetToken
	}
	return user, nil
}

// ChangePhoneOrEmail moves the account to a new contact. The new contact
// starts unverified, so tokens issued for the old one stop working.
func (s *UserService) ChangePhoneOrEmail(ctx context.Context, userID, current, next string) (*models.PublicUser, error) {
	current = validation.NormalizeContact(current)
	next = validation.NormalizeContact(next)
	if current == "" || next == "" {
		return nil, common.ErrMissingCredentials
	}
	if err := validation.Contact(next); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return nil, err
	}
	if user.PhoneOrEmail != current {
		return nil, common.ErrContactMismatch
	}

	user.PhoneOrEmail = next
	user.IsPhoneOrEmailVerified = false
	user.VerificationTokenHash = nil
	user.LastVerificationSentAt = nil
	if err := s.repos.Users(s.db.Conn()).Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			return nil, err
		}
		return nil, s.dependency(ctx, "error updating user", err)
	}
	return user.Public(), nil
}

func (s *UserService) VerificationStatus(ctx context.Context, userID string) (*VerificationStatus, error) {
	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return nil, err
	}
	return &VerificationStatus{
		HasVerificationToken:   user.VerificationTokenHash != nil,
		IsPhoneOrEmailVerified: user.IsPhoneOrEmailVerified,
		IsVerified:             user.IsVerified,
	}, nil
}

// ListSessions returns the live refresh sessions of userID, newest first.
func (s *UserService) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	recs, err := s.repos.RefreshTokens(s.db.Conn()).ListByUser(ctx, userID, s.now())
	if err != nil {
		return nil, s.dependency(ctx, "error listing sessions", err)
	}
	out := make([]*Session, 0, len(recs))
	for _, r := range recs {
		out = append(out, &Session{ID: r.ID, CreatedAt: r.CreatedAt, ExpiresAt: r.ExpiresAt})
	}
	return out, nil
}

// RevokeAllSessions deletes every refresh session of userID and returns
// how many there were.
func (s *UserService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	n, err := s.repos.RefreshTokens(s.db.Conn()).DeleteByUser(ctx, userID)
	if err != nil {
		return 0, s.dependency(ctx, "error revoking sessions", err)
	}
	return n, nil
}

// DeactivateAccount switches userID's account off and ends all of its
// sessions. Login and refresh are refused until ReactivateAccount.
func (s *UserService) DeactivateAccount(ctx context.Context, userID string) error {
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return nil
		}
		user.IsActive = false
		if err := s.repos.Users(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		if _, err := s.repos.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return err
		}
		return s.dependency(ctx, "error deactivating account", err)
	}
	s.publish(ctx, events.UserDeactivated, userID, nil)
	return nil
}

// ReactivateAccount turns a deactivated account back on. A deactivated
// user holds no session, so the credentials are checked like at login,
// lockout included. Blocked accounts stay refused.
func (s *UserService) ReactivateAccount(ctx context.Context, phoneOrEmail, pw string) (*models.PublicUser, error) {
	contact := validation.NormalizeContact(phoneOrEmail)
	if contact == "" || pw == "" {
		return nil, common.ErrMissingCredentials
	}

	users := s.repos.Users(s.db.Conn())
	user, err := users.GetByPhoneOrEmail(ctx, contact)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.dependency(ctx, "error fetching user", err)
	}

	now := s.now()
	if err := s.lockout.Check(user, now); err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(pw, user.PasswordHash)
	if err != nil {
		return nil, s.dependency(ctx, "error verifying password", err)
	}
	if !ok {
		s.lockout.Failure(user, now)
		if err := users.Update(ctx, user); err != nil {
			return nil, s.dependency(ctx, "error recording failed login", err)
		}
		return nil, common.ErrInvalidPassword
	}
	if user.IsBlocked {
		return nil, common.ErrAccountBlocked
	}

	s.lockout.Success(user)
	wasInactive := !user.IsActive
	user.IsActive = true
	if err := users.Update(ctx, user); err != nil {
		return nil, s.dependency(ctx, "error updating user", err)
	}
	if wasInactive {
		s.publish(ctx, events.UserReactivated, user.ID, user.Public())
	}
	return user.Public(), nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.loadUser(ctx, s.db.Conn(), userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) loadUser(ctx context.Context, db dbx.DBTX, id string) (*models.User, error) {
	user, err := s.repos.Users(db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.dependency(ctx, "error fetching user", err)
	}
	return user, nil
}

func (s *UserService) setPassword(user *models.User, pw string) error {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

func (s *UserService) savePassword(ctx context.Context, user *models.User) error {
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		if s.revokeOnPassword {
			if _, err := s.repos.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
				return fmt.Errorf("error revoking sessions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return s.dependency(ctx, "error saving password", err)
	}
	return nil
}

// issuePair signs an access/refresh pair and persists the refresh session
// through db.
func (s *UserService) issuePair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	sub := subjectOf(user)

	access, _, err := s.tokens.Issue(tokens.KindAccess, sub, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, claims, err := s.tokens.Issue(tokens.KindRefresh, sub, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}
	if err := s.repos.RefreshTokens(db).Create(ctx, user.ID, common.HashToken(refresh), claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) issueVerification(user *models.User, ttl time.Duration) (string, error) {
	token, _, err := s.tokens.Issue(tokens.KindVerification, subjectOf(user), ttl)
	if err != nil {
		return "", fmt.Errorf("error issuing verification token: %w", err)
	}
	return token, nil
}

// verifyScoped reports a token of another kind as ErrInvalidTokenType.
func (s *UserService) verifyScoped(token string, kind tokens.Kind) (*tokens.Claims, error) {
	claims, err := s.tokens.Verify(token, kind)
	if errors.Is(err, common.ErrWrongTokenType) {
		return nil, common.ErrInvalidTokenType
	}
	return claims, err
}

func (s *UserService) publish(ctx context.Context, t events.Type, key string, payload any) {
	publishEvent(ctx, s.events, s.logger, t, key, payload, s.now())
}

func (s *UserService) dependency(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}

// usable reports the account overlays that forbid starting a session.
func usable(user *models.User) error {
	if user.IsBlocked {
		return common.ErrAccountBlocked
	}
	if !user.IsActive {
		return common.ErrAccountDeactivated
	}
	return nil
}

func subjectOf(user *models.User) tokens.Subject {
	return tokens.Subject{UserID: user.ID, Role: user.Role(), PhoneOrEmail: user.PhoneOrEmail}
}

func channelFor(isEmail bool) notify.Channel {
	if isEmail {
		return notify.ChannelEmail
	}
	return notify.ChannelSMS
}

func publishEvent(ctx context.Context, p events.Publisher, l logging.Logger, t events.Type, key string, payload any, now time.Time) {
	err := p.Publish(ctx, events.Event{Type: t, Key: key, Payload: payload, OccurredAt: now})
	if err != nil {
		l.Warn(ctx, "event publish failed", "type", t, "key", key, "error", err)
	}
}
