package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

// Register prompts for the profile fields and a password, creates the account
// and logs it in.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	resp, err := a.authService.Register(ctx, models.RegisterData{
		Name:        name,
		Username:    username,
		Email:       email,
		RawPassword: password,
	})
	if err != nil {
		a.log.Error(ctx, "registration failed", "error", err)
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", resp.User.Username)
	return nil
}

// Login prompts for an identifier (username or email) and a password.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter username or email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	resp, err := a.authService.Login(ctx, models.LoginData{Identifier: identifier, RawPassword: password})
	if err != nil {
		a.log.Error(ctx, "login failed", "error", err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", resp.User.Username)
	return nil
}

// Logout always clears the local session, even if the server is unreachable.
func (a *App) Logout(ctx context.Context) error {
	a.authService.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI refreshes the profile from the server and prints it.
func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	u, err := a.authService.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	printUser(a, u)
	return nil
}

// Check validates the stored session against the server. An invalid session
// is cleared.
func (a *App) Check(ctx context.Context) error {
	if a.authService.CheckAuth(ctx) {
		fmt.Fprintln(a.out, "Session is valid")
		return nil
	}
	fmt.Fprintln(a.out, "Session is not valid, logged out")
	return errNotLoggedIn
}

// Status prints the local view of the session without contacting the server.
func (a *App) Status(ctx context.Context) error {
	s := a.store.Snapshot()
	if !session.IsAuthenticated(s) {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	if u := session.CurrentUser(s); u != nil {
		printUser(a, u)
	} else {
		fmt.Fprintln(a.out, "Logged in (profile not loaded)")
	}
	if exp, ok := session.TokenExpiry(s.Token); ok {
		fmt.Fprintf(a.out, "Token expires: %s\n", exp.Format(time.RFC3339))
	}
	return nil
}

func printUser(a *App, u *models.User) {
	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(a.out, "%s (%s) <%s> role=%s provider=%s\n", u.Name, u.Username, u.Email, role, u.AuthProvider)
}
