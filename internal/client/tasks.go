package client

import (
	"context"
	"encoding/json"

	"github.com/tasktide/desk/internal/bridge"
	"github.com/tasktide/desk/internal/domain"
)

// LoadTask returns a task's full details.
func (c *Client) LoadTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.call(ctx, "load task", bridge.MethodLoadTask, taskID)
}

// LoadTasksSummary returns one page of task summaries matching filters.
func (c *Client) LoadTasksSummary(ctx context.Context, filters domain.TaskFilters, page domain.Pagination) (json.RawMessage, error) {
	return c.call(ctx, "load task summaries", bridge.MethodLoadTasksSummary, filters, page.Normalize())
}

// SaveTask creates or updates a task. task is sent as-is.
func (c *Client) SaveTask(ctx context.Context, task any) (json.RawMessage, error) {
	return c.call(ctx, "save task", bridge.MethodSaveTask, task)
}

// DeleteTask removes a task and its milestones.
func (c *Client) DeleteTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.call(ctx, "delete task", bridge.MethodDeleteTask, taskID)
}

// TaskCounts returns task counts per status. since, when set, is a number of
// days limiting the count to recently updated tasks.
func (c *Client) TaskCounts(ctx context.Context, since *string) (json.RawMessage, error) {
	var arg any
	if since != nil {
		arg = *since
	}
	return c.call(ctx, "get task counts", bridge.MethodTaskCounts, arg)
}
