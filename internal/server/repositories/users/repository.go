// Package users declares the credential store for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// Repository persists user accounts. Lookups return common.ErrorNotFound
// when the row is absent; Create and Update return common.ErrDuplicateUser
// when the phone/email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhoneOrEmail(ctx context.Context, phoneOrEmail string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetIdentityVerified(ctx context.Context, id string, verified bool) error
}
