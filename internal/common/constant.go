// Package common contains shared constants, sentinel errors and small helpers
// used across authkeeper components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// RequestIDHeaderName correlates a client request with server-side logs.
	RequestIDHeaderName = "X-Request-ID"

	// TokenStorageKey and UserStorageKey are the durable storage keys of a session.
	TokenStorageKey = "authToken"
	UserStorageKey  = "user"
)
