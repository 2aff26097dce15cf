// Package cli provides the authkeeper command-line client.
//
// It wires configuration, the persisted session store, the HTTP API client
// and the auth service, and exposes them as cobra subcommands (register,
// login, logout, whoami, status, check) plus an interactive REPL, which is the
// default when no subcommand is given.
//
// Because the session is persisted in SQLite, one-shot commands share state:
// `authkeeper login` followed by `authkeeper whoami` reuses the stored token.
package cli
