package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const wsReadLimit = 8 << 20

// wsRequest is one call frame sent to the host.
type wsRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// wsResponse is the host's reply frame. Fault is set when the host raised
// instead of producing a reply.
type wsResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Fault  string          `json:"fault,omitempty"`
}

// WebSocket is a Connector speaking to the host over a single WebSocket with
// JSON frames correlated by id. A connection lost after WaitReady is redialed
// by the next Call.
type WebSocket struct {
	url            string
	dialInterval   time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger

	dialing chan struct{} // one dial at a time

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[string]chan wsResponse
	closed   chan struct{}
	cancel   context.CancelFunc
	shutdown bool
}

// WebSocketConfig holds configuration for the WebSocket transport.
type WebSocketConfig struct {
	URL            string
	DialInterval   time.Duration
	RequestTimeout time.Duration
}

// NewWebSocket returns an unconnected transport.
func NewWebSocket(cfg WebSocketConfig, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialInterval <= 0 {
		cfg.DialInterval = time.Second
	}
	return &WebSocket{
		url:            cfg.URL,
		dialInterval:   cfg.DialInterval,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
		dialing:        make(chan struct{}, 1),
		pending:        make(map[string]chan wsResponse),
	}
}

// WaitReady dials the host until the handshake succeeds or ctx is done.
func (c *WebSocket) WaitReady(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := c.dial(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConnectionClosed) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("Host not reachable yet", "url", c.url, "attempt", attempt, "error", err)

		timer := time.NewTimer(c.dialInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// dial makes one connection attempt unless a connection already exists.
func (c *WebSocket) dial(ctx context.Context) error {
	select {
	case c.dialing <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.dialing }()

	c.mu.Lock()
	connected, shutdown := c.conn != nil, c.shutdown
	c.mu.Unlock()
	if shutdown {
		return ErrConnectionClosed
	}
	if connected {
		return nil
	}

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	if !c.attach(conn) {
		_ = conn.CloseNow()
		return ErrConnectionClosed
	}
	c.logger.Info("Connected to host", "transport", "websocket", "url", c.url)
	return nil
}

// attach installs conn and starts its reader. It reports false if the
// transport was closed meanwhile.
func (c *WebSocket) attach(conn *websocket.Conn) bool {
	conn.SetReadLimit(wsReadLimit)
	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		cancel()
		return false
	}
	c.conn = conn
	c.closed = make(chan struct{})
	c.cancel = cancel
	closed := c.closed
	c.mu.Unlock()

	go c.readLoop(readCtx, conn, closed)
	return true
}

func (c *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)
	for {
		var resp wsResponse
		if err := wsjson.Read(ctx, conn, &resp); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.logger.Warn("Host connection lost", "error", err)
			}
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("Dropping reply for unknown call", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

// Call invokes method on the host.
func (c *WebSocket) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		if err := c.dial(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", method, ErrNotConnected, err)
		}
	}

	c.mu.Lock()
	conn, closed := c.conn, c.closed
	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	id := uuid.NewString()
	ch := make(chan wsResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, conn, wsRequest{ID: id, Method: method, Args: args}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Fault != "" {
			return nil, fmt.Errorf("%s: %w: %s", method, ErrHostFault, resp.Fault)
		}
		if len(resp.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return resp.Result, nil
	case <-closed:
		return nil, fmt.Errorf("%s: %w", method, ErrConnectionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the connection for good. In-flight calls fail with
// ErrConnectionClosed and later calls with ErrNotConnected.
func (c *WebSocket) Close() error {
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn = nil
	c.shutdown = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "client closing")
	cancel()
	if err != nil {
		return fmt.Errorf("close host connection: %w", err)
	}
	return nil
}

// WebSocketHost returns an http.Handler exposing h as the host over the
// WebSocket transport. Calls on one connection are served in order.
func WebSocketHost(h HostFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Error("Failed to accept bridge WebSocket", "error", err)
			return
		}
		ws.SetReadLimit(wsReadLimit)
		defer func() {
			if closeErr := ws.CloseNow(); closeErr != nil {
				logger.Debug("Failed to close bridge WebSocket", "error", closeErr)
			}
		}()

		ctx := r.Context()
		for {
			var req wsRequest
			if err := wsjson.Read(ctx, ws, &req); err != nil {
				return
			}

			resp := wsResponse{ID: req.ID}
			result, err := h(ctx, req.Method, req.Args)
			if err != nil {
				resp.Fault = err.Error()
			} else if resp.Result, err = json.Marshal(result); err != nil {
				resp.Fault = fmt.Sprintf("encode %s reply: %v", req.Method, err)
			}

			if err := wsjson.Write(ctx, ws, resp); err != nil {
				logger.Debug("Failed to write bridge reply", "method", req.Method, "error", err)
				return
			}
		}
	})
}
