// Package common defines shared constants and sentinel errors used across
// client layers of authkeeper. Callers should use errors.Is to match these values.
package common

import "errors"

// ErrorNotFound is returned by repositories when a record is absent.
var ErrorNotFound = errors.New("not found")

// ErrorReporter receives failures that an operation deliberately does not
// return to its caller (best-effort persistence, server logout, auth checks).
// op names the failed step, e.g. "session.persist" or "auth.logout".
type ErrorReporter func(op string, err error)

// Report calls r when it is not nil.
func (r ErrorReporter) Report(op string, err error) {
	if r == nil || err == nil {
		return
	}
	r(op, err)
}
