package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service the host registers. Each host method is a
// unary RPC taking a google.protobuf.ListValue of positional arguments and
// returning a google.protobuf.Value.
const ServiceName = "tasktide.bridge.v1.Host"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GRPC is a Connector speaking to the host over gRPC.
type GRPC struct {
	conn           *grpc.ClientConn
	addr           string
	requestTimeout time.Duration
	logger         *slog.Logger
}

// GRPCConfig holds configuration for the gRPC transport.
type GRPCConfig struct {
	Address          string
	RequestTimeout   time.Duration // 0 leaves calls bounded only by the caller's context
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	DialOptions      []grpc.DialOption
}

// DefaultGRPCConfig returns default configuration.
func DefaultGRPCConfig() GRPCConfig {
	return GRPCConfig{
		Address:          "localhost:50051",
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGRPC builds the client connection. No network I/O happens until
// WaitReady or the first call.
func NewGRPC(cfg GRPCConfig, logger *slog.Logger) (*GRPC, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		cfg.Address = DefaultGRPCConfig().Address
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("create host client for %s: %w", cfg.Address, err)
	}

	return &GRPC{
		conn:           conn,
		addr:           cfg.Address,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

// WaitReady drives the connection until it is Ready or ctx is done.
func (c *GRPC) WaitReady(ctx context.Context) error {
	if err := waitForReady(ctx, c.conn); err != nil {
		return fmt.Errorf("host at %s not ready: %w", c.addr, err)
	}
	c.logger.Info("Connected to host", "transport", "grpc", "address", c.addr)
	return nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Call invokes method on the host.
func (c *GRPC) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	in, err := argsToList(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", method, err)
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	out := &structpb.Value{}
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		if status.Code(err) == codes.Unknown {
			return nil, fmt.Errorf("%s: %w: %s", method, ErrHostFault, status.Convert(err).Message())
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	data, err := protojson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", method, err)
	}
	return json.RawMessage(data), nil
}

// Close closes the gRPC connection.
func (c *GRPC) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close host connection: %w", err)
	}
	return nil
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// argsToList round-trips args through JSON so structs and raw messages reach
// the wire the same way they would over the WebSocket transport.
func argsToList(args []any) (*structpb.ListValue, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	list := &structpb.ListValue{}
	if err := protojson.Unmarshal(data, list); err != nil {
		return nil, err
	}
	return list, nil
}

// NewGRPCServer returns a gRPC server exposing h as the host service. Every
// method under ServiceName is routed to h.
func NewGRPCServer(h HostFunc, opts ...grpc.ServerOption) *grpc.Server {
	handler := func(_ any, stream grpc.ServerStream) error {
		full, ok := grpc.MethodFromServerStream(stream)
		if !ok {
			return status.Error(codes.Internal, "method not found in stream")
		}
		prefix := "/" + ServiceName + "/"
		if len(full) <= len(prefix) || full[:len(prefix)] != prefix {
			return status.Errorf(codes.Unimplemented, "unknown service method %s", full)
		}
		method := full[len(prefix):]

		in := &structpb.ListValue{}
		if err := stream.RecvMsg(in); err != nil {
			return err
		}

		result, err := h(stream.Context(), method, in.AsSlice())
		if err != nil {
			return status.Error(codes.Unknown, err.Error())
		}

		out, err := valueOf(result)
		if err != nil {
			return status.Errorf(codes.Internal, "encode %s reply: %v", method, err)
		}
		return stream.SendMsg(out)
	}

	opts = append(opts, grpc.UnknownServiceHandler(handler))
	return grpc.NewServer(opts...)
}

func valueOf(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Value{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
