// Package services contains application services for the authkeeper client.
// This file defines the authentication service: register, login, logout,
// profile refresh and server-validated session checks, keeping the session
// store consistent with the outcome of every call.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// SessionStore is the subset of *session.Store the service mutates.
type SessionStore interface {
	Login(ctx context.Context, user models.User, token string) error
	Logout(ctx context.Context)
	UpdateUser(ctx context.Context, user models.User)
	SetLoading(loading bool)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: flag loading, call the server, and on success log the
//     returned user in. On failure the loading flag is cleared and the error is
//     returned; user and token are left untouched.
//   - Logout: notify the server, then always clear the local session. Server
//     failures are logged and reported, never returned.
//   - GetCurrentUser: fetch the profile and store it.
//   - CheckAuth: the authoritative session check. It validates the token
//     against the server and forces a logout on any failure.
//   - Ping: check server liveness.
type AuthService interface {
	Register(ctx context.Context, data models.RegisterData) (*models.LoginResponse, error)
	Login(ctx context.Context, data models.LoginData) (*models.LoginResponse, error)
	Logout(ctx context.Context)
	GetCurrentUser(ctx context.Context) (*models.User, error)
	CheckAuth(ctx context.Context) bool
	Ping(ctx context.Context) error
}

type Option func(*authService)

func WithLogger(l logging.Logger) Option {
	return func(a *authService) {
		if l != nil {
			a.log = l
		}
	}
}

// WithErrorReporter receives the failures Logout and CheckAuth swallow.
func WithErrorReporter(r common.ErrorReporter) Option {
	return func(a *authService) { a.report = r }
}

type authService struct {
	client client.Client
	store  SessionStore
	log    logging.Logger
	report common.ErrorReporter
}

// NewAuthService constructs an AuthService bound to the given API client and session store.
func NewAuthService(c client.Client, store SessionStore, opts ...Option) AuthService {
	a := &authService{client: c, store: store, log: logging.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *authService) Register(ctx context.Context, data models.RegisterData) (*models.LoginResponse, error) {
	return a.authenticate(ctx, "register", func(ctx context.Context) (*models.LoginResponse, error) {
		return a.client.Register(ctx, data)
	})
}

func (a *authService) Login(ctx context.Context, data models.LoginData) (*models.LoginResponse, error) {
	return a.authenticate(ctx, "login", func(ctx context.Context) (*models.LoginResponse, error) {
		return a.client.Login(ctx, data)
	})
}

// authenticate wraps a register/login call with the loading flag. The store
// is only touched after the response has been received and decoded.
func (a *authService) authenticate(ctx context.Context, op string, call func(ctx context.Context) (*models.LoginResponse, error)) (*models.LoginResponse, error) {
	a.store.SetLoading(true)

	resp, err := call(ctx)
	if err != nil {
		a.store.SetLoading(false)
		return nil, err
	}

	if err := a.store.Login(ctx, resp.User, resp.Token); err != nil {
		a.store.SetLoading(false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info(ctx, "authenticated", "op", op, "user", resp.User.Username)
	return resp, nil
}

func (a *authService) Logout(ctx context.Context) {
	defer a.store.Logout(ctx)

	if err := a.client.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout request failed", "error", err)
		a.report.Report("auth.logout", err)
	}
}

func (a *authService) GetCurrentUser(ctx context.Context) (*models.User, error) {
	u, err := a.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	a.store.UpdateUser(ctx, *u)
	return u, nil
}

func (a *authService) CheckAuth(ctx context.Context) bool {
	if _, err := a.GetCurrentUser(ctx); err != nil {
		a.log.Error(ctx, "checkAuth failed", "error", err)
		a.report.Report("auth.check", err)
		a.store.Logout(ctx)
		return false
	}
	return true
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
