// Package session owns the client's authentication state.
//
// A Store holds the current Session (user, token and derived flags), persists
// the token and user profile through a Storage backend, and notifies
// subscribers after every mutation. All writes go through the Store's named
// operations; readers either subscribe or take a Snapshot.
//
// # Persistence
//
// Two keys are used: "authToken" holds the raw token and "user" holds the JSON
// encoded models.User. Login writes both, Logout removes both and UpdateUser
// rewrites only "user". A nil Storage means the process has no durable
// storage: persistence is skipped silently. Storage failures never fail an
// operation; they are logged and passed to the configured ErrorReporter.
//
// # Concurrency
//
// A Store is safe for concurrent use. Overlapping flows are not serialized
// beyond individual operations, so the last write wins.
package session
