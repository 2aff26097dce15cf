package models

// Envelope is the success body of every API call.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// ErrorBody is the best-effort shape of a non-success response.
type ErrorBody struct {
	Message string `json:"message"`
}

// LoginResponse is the payload of /auth/login and /auth/register.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type RegisterData struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	RawPassword string `json:"rawPassword"`
}

type LoginData struct {
	Identifier  string `json:"identifier"`
	RawPassword string `json:"rawPassword"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Message string `json:"message"`
}
