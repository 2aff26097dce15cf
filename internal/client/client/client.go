package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

// API endpoints, relative to the base URL.
const (
	EndpointRegister = "/auth/register"
	EndpointLogin    = "/auth/login"
	EndpointLogout   = "/auth/logout"
	EndpointMe       = "/auth/me"
	EndpointHealth   = "/health"
)

// Client is the contract of the authentication API.
//
// Failures are *TransportError, *APIError or *ParseError; use errors.Is
// with ErrUnavailable or ErrUnauthorized to classify them.
type Client interface {
	Register(ctx context.Context, data models.RegisterData) (*models.LoginResponse, error)
	Login(ctx context.Context, data models.LoginData) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	Ping(ctx context.Context) error
}

// TokenSource yields the current bearer token; "" means none.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }
