// Package client contains the transport side of the authkeeper client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): Register,
//     Login, Logout, Me and Ping.
//  2. A JSON-over-HTTP implementation (see HTTPClient). Every call goes through
//     HTTPClient.Do, which joins the base URL with the endpoint, sets the JSON
//     content type, merges caller headers and attaches "Authorization: Bearer
//     <token>" from the injected TokenSource on every endpoint except login and
//     register.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Do is the single translation point. Callers receive one of:
//   - *TransportError: the request never produced a response (errors.Is ErrUnavailable)
//   - *APIError: non-2xx status, carrying the server message or "Error: <status>"
//     (errors.Is ErrUnauthorized for 401/403)
//   - *ParseError: the response body is not valid JSON
//
// Nothing is retried.
package client
