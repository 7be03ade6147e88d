package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/farmgate/internal/client/client"
	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

// getSimpleText and getCode point at the interactive input helpers and are
// swapped in tests.
var getSimpleText = GetSimpleText
var getCode = GetCode

var errEmptyInput = errors.New("empty input")

func describeError(err error) string {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrUnauthorized):
		return "not signed in or code rejected"
	case errors.Is(err, common.ErrTooManyAttempts):
		return "too many attempts, wait a few minutes"
	default:
		return err.Error()
	}
}

// Login asks for an email, has the server send a code to it, then asks for
// the code and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if email == "" {
		return errEmptyInput
	}

	rctx, cancel := a.withTimeout(ctx)
	err = a.authService.RequestCode(rctx, email)
	cancel()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A code was sent to %s\n", email)

	code, err := getCode(a.out)
	if err != nil {
		return err
	}
	if code == "" {
		return errEmptyInput
	}

	rctx, cancel = a.withTimeout(ctx)
	defer cancel()
	if err := a.authService.Login(rctx, email, code); err != nil {
		return err
	}

	a.email = strings.ToLower(strings.TrimSpace(email))
	fmt.Fprintln(a.out, "Signed in")
	return nil
}

// Me prints the profile behind the current session.
func (a *App) Me(ctx context.Context) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	s, err := a.authService.Me(rctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.email = ""
		}
		return err
	}

	a.email = s.User.Email
	fmt.Fprint(a.out, formatSession(s))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	err := a.authService.Logout(rctx)
	a.email = ""
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// restore picks up a token saved by a previous run and checks it is still
// accepted.
func (a *App) restore(ctx context.Context) {
	email, err := a.authService.Restore(ctx)
	if err != nil {
		printlnFn("Error:", describeError(err))
		return
	}
	if email == "" {
		return
	}

	rctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if _, err := a.authService.Me(rctx); err != nil {
		if !errors.Is(err, client.ErrUnauthorized) {
			// keep the saved token; the server may just be down
			a.email = email
		}
		return
	}
	a.email = email
}

func formatSession(s *models.SessionWithUser) string {
	var b strings.Builder
	u := s.User

	fmt.Fprintf(&b, "Email:    %s\n", u.Email)
	if u.Fullname != nil {
		fmt.Fprintf(&b, "Name:     %s\n", *u.Fullname)
	}
	if u.Phone != nil {
		fmt.Fprintf(&b, "Phone:    %s\n", *u.Phone)
	}
	if u.Role != nil {
		fmt.Fprintf(&b, "Role:     %s\n", *u.Role)
	}
	if t := u.Transporter; t != nil {
		fmt.Fprintf(&b, "Vehicle:  %s %s (%d kg)\n", t.VehicleType, t.PlateNumber, t.LoadCapacityInKg)
		if t.VehiclePhoto != nil {
			fmt.Fprintf(&b, "Photo:    %s\n", *t.VehiclePhoto)
		}
	}
	if p := u.Producer; p != nil {
		fmt.Fprintf(&b, "Farm:     %s (license %s)\n", p.Address, p.FarmerLicenseNumber)
	}
	fmt.Fprintf(&b, "Session:  %s, since %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"))
	return b.String()
}
