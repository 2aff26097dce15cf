package models

// AuthProviderLocal tags accounts created with username/password.
const AuthProviderLocal = "local"

// User is the profile returned by the API. It is treated as an immutable
// value: updates replace the whole object.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"isAdmin"`
	AuthProvider string `json:"authProvider"`
}
