package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication matches a rejected login.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthRequired matches a call whose token the host rejected.
	ErrAuthRequired = errors.New("authentication required")
	// ErrRemote matches any other error reply from the host.
	ErrRemote = errors.New("remote operation failed")
)

// AuthenticationError is returned by Login when the host refuses the
// credentials or replies without a token.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// AuthRequiredError is returned when the host rejected the token. The local
// session has already been cleared when the caller sees it.
type AuthRequiredError struct {
	Method  string
	Message string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %s please re-login", e.Message)
}

func (e *AuthRequiredError) Is(target error) bool { return target == ErrAuthRequired }

// RemoteError carries the host's error text unchanged.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }
