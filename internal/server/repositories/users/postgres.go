package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, date_of_birth, gender, phone_or_email, password_hash,
		is_phone_or_email_verified, is_verified, is_admin, is_active, is_blocked,
		login_attempts, lock_until, reset_password_token_hash, reset_password_expires,
		verification_token_hash, last_verification_sent_at, last_login, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (first_name, last_name, date_of_birth, gender, phone_or_email, password_hash,
		 is_phone_or_email_verified, is_admin, is_active, last_verification_sent_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.DateOfBirth, string(user.Gender), user.PhoneOrEmail,
		user.PasswordHash, user.IsPhoneOrEmailVerified, user.IsAdmin, user.IsActive,
		nullTime(user.LastVerificationSentAt),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrDuplicateUser
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByPhoneOrEmail(ctx context.Context, phoneOrEmail string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_or_email = $1`
	return r.getOne(ctx, query, phoneOrEmail)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Update writes every mutable column of user.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {

	query :=
		`UPDATE users SET first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
		 phone_or_email = $6, password_hash = $7, is_phone_or_email_verified = $8, is_verified = $9,
		 is_admin = $10, is_active = $11, is_blocked = $12, login_attempts = $13, lock_until = $14,
		 reset_password_token_hash = $15, reset_password_expires = $16, verification_token_hash = $17,
		 last_verification_sent_at = $18, last_login = $19, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.DateOfBirth, string(user.Gender),
		user.PhoneOrEmail, user.PasswordHash, user.IsPhoneOrEmailVerified, user.IsVerified,
		user.IsAdmin, user.IsActive, user.IsBlocked, user.LoginAttempts, nullTime(user.LockUntil),
		nullString(user.ResetPasswordTokenHash), nullTime(user.ResetPasswordExpires),
		nullString(user.VerificationTokenHash), nullTime(user.LastVerificationSentAt),
		nullTime(user.LastLogin),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateUser
		}
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) SetIdentityVerified(ctx context.Context, id string, verified bool) error {
	query := `UPDATE users SET is_verified = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, verified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                                            models.User
		gender                                       string
		lockUntil, resetExpires, lastSent, lastLogin sql.NullTime
		resetHash, verificationHash                  sql.NullString
	)

	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DateOfBirth, &gender, &u.PhoneOrEmail,
		&u.PasswordHash, &u.IsPhoneOrEmailVerified, &u.IsVerified, &u.IsAdmin, &u.IsActive,
		&u.IsBlocked, &u.LoginAttempts, &lockUntil, &resetHash, &resetExpires, &verificationHash,
		&lastSent, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Gender = models.Gender(gender)
	u.LockUntil = timePtr(lockUntil)
	u.ResetPasswordTokenHash = stringPtr(resetHash)
	u.ResetPasswordExpires = timePtr(resetExpires)
	u.VerificationTokenHash = stringPtr(verificationHash)
	u.LastVerificationSentAt = timePtr(lastSent)
	u.LastLogin = timePtr(lastLogin)

	return &u, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
