package session

import "github.com/dmitrijs2005/authkeeper/internal/client/models"

// Session is a snapshot of the authentication state.
// Token is empty when absent; IsAuthenticated always equals Token != "".
type Session struct {
	User            *models.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

// IsAuthenticated reports whether s carries a token.
func IsAuthenticated(s Session) bool {
	return s.Token != ""
}

// CurrentUser returns the user of s, or nil.
func CurrentUser(s Session) *models.User {
	return s.User
}

// IsAdmin reports the admin flag of the current user; false without a user.
func IsAdmin(s Session) bool {
	return s.User != nil && s.User.IsAdmin
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
