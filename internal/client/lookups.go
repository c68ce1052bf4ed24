package client

import (
	"context"
	"encoding/json"

	"github.com/tasktide/desk/internal/bridge"
)

// Statuses returns the distinct status values, optionally only those in use.
func (c *Client) Statuses(ctx context.Context, onlyActive bool) (json.RawMessage, error) {
	return c.call(ctx, "load statuses", bridge.MethodDistinctStatuses, onlyActive)
}

// FromValues returns the distinct origin ("from") values.
func (c *Client) FromValues(ctx context.Context, onlyActive bool) (json.RawMessage, error) {
	return c.call(ctx, "load from values", bridge.MethodDistinctFromValues, onlyActive)
}

// Categories returns the distinct categories.
func (c *Client) Categories(ctx context.Context, onlyActive bool) (json.RawMessage, error) {
	return c.call(ctx, "load categories", bridge.MethodDistinctCategories, onlyActive)
}

// DeleteStatus removes a status value by its description.
func (c *Client) DeleteStatus(ctx context.Context, description string) (json.RawMessage, error) {
	return c.call(ctx, "delete status", bridge.MethodDeleteStatusValues, description)
}

// DeleteFromValue removes an origin value by its description.
func (c *Client) DeleteFromValue(ctx context.Context, description string) (json.RawMessage, error) {
	return c.call(ctx, "delete from value", bridge.MethodDeleteFromValues, description)
}
