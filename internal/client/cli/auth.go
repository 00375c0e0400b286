package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/client/client"
	"github.com/dmitrijs2005/docvault/internal/server/models"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// Indirections over the interactive helpers, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getChoice     = GetChoice
)

var errUsage = errors.New("usage")

// fail reports err to the user and returns it.
func (a *App) fail(err error) error {
	fmt.Fprintln(a.out, "Error:", err)
	return err
}

func (a *App) usage(text string) error {
	fmt.Fprintln(a.out, "Usage:", text)
	return errUsage
}

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

func (a *App) Register(ctx context.Context) error {
	req := &gs.RegisterRequest{}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
		{"Date of birth (YYYY-MM-DD)", &req.DateOfBirth},
		{"Phone or email", &req.PhoneOrEmail},
	}
	for _, f := range fields {
		v, err := a.prompt(f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	gender, err := getChoice(a.reader, "Gender", []string{string(models.GenderMale), string(models.GenderFemale), string(models.GenderOther)}, a.out)
	if err != nil {
		return err
	}
	req.Gender = gender

	if req.Password, err = getPassword(a.out, "Password"); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.api.Register(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	a.user = res.User

	fmt.Fprintf(a.out, "Registered. A verification code was sent to %s.\n", res.User.PhoneOrEmail)
	fmt.Fprintln(a.out, verifyHint(res.User.PhoneOrEmail))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	contact, err := a.prompt("Phone or email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.api.Login(ctx, contact, password)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return a.fail(err)
	}
	a.user = res.User
	a.setMode(ModeOnline)

	if res.Tokens == nil {
		fmt.Fprintln(a.out, "Your phone/email is not verified yet.")
		fmt.Fprintln(a.out, verifyHint(res.User.PhoneOrEmail))
		return nil
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	err := a.api.Logout(ctx)
	a.user = nil
	if err != nil && !errors.Is(err, client.ErrNotLoggedIn) {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Verify handles "verify request", "verify email <token>" and
// "verify phone <code>".
func (a *App) Verify(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("verify request | verify email <token> | verify phone <code>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		res *gs.AuthResponse
		err error
	)
	switch {
	case args[0] == "request":
		if a.user == nil {
			return a.fail(client.ErrNotLoggedIn)
		}
		if err := a.api.RequestVerification(ctx, !isEmail(a.user.PhoneOrEmail)); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.out, "Verification sent to %s\n", a.user.PhoneOrEmail)
		return nil
	case args[0] == "email" && len(args) == 2:
		res, err = a.api.VerifyEmail(ctx, args[1])
	case args[0] == "phone" && len(args) == 2:
		res, err = a.api.VerifyPhone(ctx, args[1])
	default:
		return a.usage("verify request | verify email <token> | verify phone <code>")
	}
	if err != nil {
		return a.fail(err)
	}

	a.user = res.User
	fmt.Fprintln(a.out, "Verified, you are now logged in")
	return nil
}

// ForgotPassword requests a reset code and, when the user has it at hand,
// sets the new password right away.
func (a *App) ForgotPassword(ctx context.Context) error {
	contact, err := a.prompt("Phone or email")
	if err != nil {
		return err
	}

	rctx, cancel := a.withTimeout(ctx)
	err = a.api.ForgotPassword(rctx, contact)
	cancel()
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "If the account exists, a reset code has been sent.")

	token, err := a.prompt("Reset code (leave empty to finish later)")
	if err != nil || token == "" {
		return err
	}
	password, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}

	rctx, cancel = a.withTimeout(ctx)
	defer cancel()
	if err := a.api.ResetPassword(rctx, token, password); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Password changed, please log in")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.api.Me(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.user = u
	fmt.Fprintf(a.out, "%s %s <%s>\n", u.FirstName, u.LastName, u.PhoneOrEmail)
	fmt.Fprintf(a.out, "  id: %s\n  contact verified: %t\n  identity verified: %t\n", u.ID, u.IsPhoneOrEmailVerified, u.IsVerified)
	return nil
}

func (a *App) Deactivate(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Deactivate(ctx); err != nil {
		return a.fail(err)
	}
	a.user = nil
	fmt.Fprintln(a.out, "Account deactivated, use 'reactivate' to turn it back on")
	return nil
}

func (a *App) Reactivate(ctx context.Context) error {
	contact, err := a.prompt("Phone or email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if _, err := a.api.Reactivate(ctx, contact, password); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Account reactivated, please log in")
	return nil
}

func isEmail(contact string) bool {
	return strings.Contains(contact, "@")
}

func verifyHint(contact string) string {
	if isEmail(contact) {
		return "Run 'verify email <token>' with the token from the message, or 'verify request' to resend."
	}
	return "Run 'verify phone <code>' with the code from the SMS, or 'verify request' to resend."
}
