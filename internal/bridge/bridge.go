// Package bridge defines the contract with the host process that owns the task
// database and the transports used to reach it.
//
// The host exposes named methods taking positional JSON arguments. Every reply
// is either a domain value or an object carrying a string "error" field.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
)

// Host method names.
const (
	MethodLogin                 = "login"
	MethodLoadTask              = "load_task"
	MethodLoadTasksSummary      = "load_tasks_summary"
	MethodSaveTask              = "save_task"
	MethodDeleteTask            = "delete_task"
	MethodLoadMilestonesForTask = "load_milestones_for_task"
	MethodSaveMilestone         = "save_milestone"
	MethodLoadMilestone         = "load_milestone"
	MethodDeleteMilestone       = "delete_milestone"
	MethodDistinctStatuses      = "get_distinct_statuses"
	MethodDistinctFromValues    = "get_distinct_from_values"
	MethodDistinctCategories    = "get_distinct_categories"
	MethodTaskCounts            = "get_task_counts"
	MethodDeleteStatusValues    = "delete_status_values"
	MethodDeleteFromValues      = "delete_from_values"
)

// AuthRequiredMessage is the reserved error text the host replies with when
// it rejects the token.
const AuthRequiredMessage = "Authentication required."

var (
	// ErrNotConnected is returned by a transport that has not reached the host yet.
	ErrNotConnected = errors.New("bridge not connected")
	// ErrConnectionClosed is returned for calls in flight when the host goes away.
	ErrConnectionClosed = errors.New("bridge connection closed")
	// ErrHostFault is returned when the host raised instead of replying.
	ErrHostFault = errors.New("host fault")
)

// Caller invokes named methods on the host.
type Caller interface {
	// Call invokes method with positional args and returns the raw JSON reply.
	// A reply carrying an "error" field is still a successful call.
	Call(ctx context.Context, method string, args ...any) (json.RawMessage, error)

	// Close releases the transport.
	Close() error
}

// Connector is a Caller that must reach the host before it is callable.
type Connector interface {
	Caller

	// WaitReady blocks until the host is callable or ctx is done.
	WaitReady(ctx context.Context) error
}

// HostFunc serves one host method. It is the server side of the contract and
// is used to expose a Go host over either transport.
type HostFunc func(ctx context.Context, method string, args []any) (any, error)

// Connect waits for c to reach the host and then opens g. It returns
// ctx.Err() if the host never became callable.
func Connect(ctx context.Context, c Connector, g *Gate) error {
	if err := c.WaitReady(ctx); err != nil {
		return err
	}
	g.Open()
	return nil
}
