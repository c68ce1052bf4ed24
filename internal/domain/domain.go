// Package domain contains the request and reply types the desk client
// exchanges with the host. Task and milestone bodies stay opaque JSON.
package domain

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the host's reply to a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// DefaultPageLimit is the page size used when none is given.
const DefaultPageLimit = 10

// Pagination selects a window of task summaries.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize fills in defaults for unset or invalid fields.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
