// Package client is the desk application's adapter to the host. Every
// operation waits for the bridge to be ready, forwards the call with the
// current token and turns error replies into Go errors.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tasktide/desk/internal/bridge"
	"github.com/tasktide/desk/internal/domain"
	"github.com/tasktide/desk/internal/session"
)

// Client is the session-aware host adapter. One Client owns the session for
// the process.
type Client struct {
	bridge  bridge.Caller
	gate    *bridge.Gate
	session *session.Session
	logger  *slog.Logger
}

// New creates a Client. Calls block until gate opens.
func New(caller bridge.Caller, gate *bridge.Gate, sess *session.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		bridge:  caller,
		gate:    gate,
		session: sess,
		logger:  logger,
	}
}

// Session returns the session the client owns.
func (c *Client) Session() *session.Session {
	return c.session
}

// Ready reports whether the host bridge is callable.
func (c *Client) Ready() bool {
	return c.gate.State() == bridge.Ready
}

// Restore loads a session persisted by an earlier login.
func (c *Client) Restore() {
	c.session.Restore()
}

// Login authenticates against the host and stores the session.
func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return domain.LoginResult{}, err
	}

	raw, err := c.bridge.Call(ctx, bridge.MethodLogin, username, password)
	if err != nil {
		c.logger.Error("Failed to login", "username", username, "error", err)
		return domain.LoginResult{}, err
	}

	if res := bridge.Decode(raw); res.Err() {
		err := &AuthenticationError{Message: res.Message}
		c.logger.Error("Failed to login", "username", username, "error", err)
		return domain.LoginResult{}, err
	}

	var out domain.LoginResult
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" || out.Username == "" {
		err := &AuthenticationError{Message: "login reply carried no token"}
		c.logger.Error("Failed to login", "username", username, "error", err)
		return domain.LoginResult{}, err
	}

	if err := c.session.Set(out.Token, out.Username); err != nil {
		c.logger.Warn("Session not persisted, it will not survive a restart", "username", out.Username, "error", err)
	}
	c.logger.Info("User logged in", "username", out.Username)
	return out, nil
}

// Logout clears the session. It never calls the host.
func (c *Client) Logout() {
	c.session.Clear()
	c.logger.Info("User logged out")
}

// Username returns the authenticated username, if any.
func (c *Client) Username() (string, bool) {
	return c.session.Username()
}

// call runs one host method with the current token prepended.
func (c *Client) call(ctx context.Context, op, method string, args ...any) (json.RawMessage, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	var token any
	if t := c.session.Token(); t != "" {
		token = t
	}
	full := append([]any{token}, args...)

	raw, err := c.bridge.Call(ctx, method, full...)
	if err != nil {
		c.logger.Error("Failed to "+op, "method", method, "error", err)
		return nil, err
	}

	res := bridge.Decode(raw)
	switch res.Kind {
	case bridge.KindAuthRequired:
		c.Logout()
		err := &AuthRequiredError{Method: method, Message: res.Message}
		c.logger.Error("Failed to "+op, "method", method, "error", err)
		return nil, err
	case bridge.KindError:
		err := &RemoteError{Method: method, Message: res.Message}
		c.logger.Error("Failed to "+op, "method", method, "error", err)
		return nil, err
	}
	return res.Value, nil
}

// Decode unmarshals a pass-through reply into a T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}
