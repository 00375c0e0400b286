// Package validation checks user-supplied account data before it reaches
// the credential store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

const (
	MinPasswordLength = 8
	MinAge            = 16
	minNameLength     = 2
	maxNameLength     = 50
)

var (
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// NormalizeContact trims and lower-cases a phone number or email.
func NormalizeContact(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmail reports whether a normalized contact is an email address.
func IsEmail(contact string) bool {
	return strings.Contains(contact, "@")
}

// Contact accepts E.164-like phone numbers and plain email addresses.
func Contact(contact string) error {
	if phoneRe.MatchString(contact) || emailRe.MatchString(contact) {
		return nil
	}
	return common.ErrInvalidFormat
}

// Password requires at least 8 characters including an ASCII uppercase
// letter, an ASCII digit and a special character.
func Password(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	if !upper || !digit || !special {
		return common.ErrWeakPassword
	}
	return nil
}

// Profile checks the personal fields of u at the given time.
func Profile(u *models.User, now time.Time) error {
	if err := name("first name", u.FirstName); err != nil {
		return err
	}
	if err := name("last name", u.LastName); err != nil {
		return err
	}
	if !u.Gender.Valid() {
		return fmt.Errorf("%w: %q is not a valid gender", common.ErrValidation, u.Gender)
	}
	if u.DateOfBirth.IsZero() || Age(u.DateOfBirth, now) < MinAge {
		return fmt.Errorf("%w: user must be at least %d years old", common.ErrValidation, MinAge)
	}
	return nil
}

// Age returns full years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func name(field, v string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < minNameLength || n > maxNameLength {
		return fmt.Errorf("%w: %s must be %d-%d characters long", common.ErrValidation, field, minNameLength, maxNameLength)
	}
	return nil
}
