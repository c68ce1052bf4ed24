package client

import (
	"context"
	"encoding/json"

	"github.com/tasktide/desk/internal/bridge"
)

// LoadMilestonesForTask returns every milestone of a task.
func (c *Client) LoadMilestonesForTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.call(ctx, "load milestones for task "+taskID, bridge.MethodLoadMilestonesForTask, taskID)
}

// SaveMilestone creates or updates a milestone under taskID.
func (c *Client) SaveMilestone(ctx context.Context, milestone any, taskID string) (json.RawMessage, error) {
	return c.call(ctx, "save milestone", bridge.MethodSaveMilestone, milestone, taskID)
}

// LoadMilestone returns a single milestone.
func (c *Client) LoadMilestone(ctx context.Context, taskID, milestoneID string) (json.RawMessage, error) {
	return c.call(ctx, "load milestone "+milestoneID, bridge.MethodLoadMilestone, taskID, milestoneID)
}

// DeleteMilestone removes a milestone from taskID.
func (c *Client) DeleteMilestone(ctx context.Context, milestoneID, taskID string) (json.RawMessage, error) {
	return c.call(ctx, "delete milestone", bridge.MethodDeleteMilestone, milestoneID, taskID)
}
