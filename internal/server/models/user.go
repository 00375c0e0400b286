// Package models defines server-side data models persisted in the database.
package models

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the full credential record. It never leaves the service layer;
// callers outside receive PublicUser.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       Gender
	PhoneOrEmail string
	PasswordHash string

	IsPhoneOrEmailVerified bool
	IsVerified             bool
	IsAdmin                bool
	IsActive               bool
	IsBlocked              bool

	LoginAttempts int
	LockUntil     *time.Time

	ResetPasswordTokenHash *string
	ResetPasswordExpires   *time.Time
	VerificationTokenHash  *string
	LastVerificationSentAt *time.Time

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role reports the role encoded into issued tokens.
func (u *User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// PublicUser is the sanitized projection returned to clients.
type PublicUser struct {
	ID                     string    `json:"id"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	DateOfBirth            time.Time `json:"dateOfBirth"`
	Gender                 Gender    `json:"gender"`
	PhoneOrEmail           string    `json:"phoneOrEmail"`
	IsPhoneOrEmailVerified bool      `json:"isPhoneOrEmailVerified"`
	IsVerified             bool      `json:"isVerified"`
	IsAdmin                bool      `json:"isAdmin"`
	CreatedAt              time.Time `json:"createdAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:                     u.ID,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		DateOfBirth:            u.DateOfBirth,
		Gender:                 u.Gender,
		PhoneOrEmail:           u.PhoneOrEmail,
		IsPhoneOrEmailVerified: u.IsPhoneOrEmailVerified,
		IsVerified:             u.IsVerified,
		IsAdmin:                u.IsAdmin,
		CreatedAt:              u.CreatedAt,
	}
}
