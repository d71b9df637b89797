package api

import (
	"context"
	"fmt"
)

// NotificationsUnreadCount returns the user's unread notification count.
func (c *Client) NotificationsUnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.get(ctx, "/api/notifications/unread_count/", nil, &resp); err != nil {
		return 0, fmt.Errorf("fetching notifications unread count: %w", err)
	}
	return resp.UnreadCount, nil
}

// ResetNotificationsUnread zeroes the server-side notification counter.
func (c *Client) ResetNotificationsUnread(ctx context.Context) error {
	if err := c.post(ctx, "/api/notifications/reset_unread_count/", nil, nil); err != nil {
		return fmt.Errorf("resetting notifications unread count: %w", err)
	}
	return nil
}
