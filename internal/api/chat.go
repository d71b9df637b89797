package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"stumart/internal/domain"
)

// Room ids are numeric in REST paths but opaque strings everywhere else in
// the client, so the wire shape decodes the id as a json.Number.
type wireRoom struct {
	ID              json.Number        `json:"id"`
	User1           domain.Participant `json:"user1"`
	User2           domain.Participant `json:"user2"`
	ItemID          *int               `json:"item_id"`
	ItemTitle       *string            `json:"item_title"`
	MessageCount    int                `json:"message_count"`
	UnreadCount     int                `json:"unread_count"`
	LastMessageTime *time.Time         `json:"last_message_time"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (w wireRoom) toDomain() domain.Room {
	room := domain.Room{
		ID:              w.ID.String(),
		User1:           w.User1,
		User2:           w.User2,
		ItemID:          w.ItemID,
		MessageCount:    w.MessageCount,
		UnreadCount:     w.UnreadCount,
		LastMessageTime: w.LastMessageTime,
		CreatedAt:       w.CreatedAt,
	}
	if w.ItemTitle != nil {
		room.ItemTitle = *w.ItemTitle
	}
	return room
}

// ListRooms returns every chat room the current user participates in, in
// server order. Sorting is the room list controller's job.
func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var resp struct {
		Rooms []wireRoom `json:"rooms"`
	}
	if err := c.get(ctx, "/api/chat/rooms/", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	rooms := make([]domain.Room, 0, len(resp.Rooms))
	for _, w := range resp.Rooms {
		rooms = append(rooms, w.toDomain())
	}
	return rooms, nil
}

type wireHistoryMessage struct {
	ID      json.Number `json:"id"`
	Content string      `json:"content"`
	User    *struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Timestamp string `json:"timestamp"`
}

// History returns the room's past messages oldest first. Messages without a
// sender degrade to an "Unknown" username and empty id rather than failing
// the whole fetch.
func (c *Client) History(ctx context.Context, roomID string) ([]domain.Message, error) {
	var resp struct {
		Messages []wireHistoryMessage `json:"messages"`
	}
	path := fmt.Sprintf("/api/chat/history/%s/", roomID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching history for room %s: %w", roomID, err)
	}

	messages := make([]domain.Message, 0, len(resp.Messages))
	for _, w := range resp.Messages {
		msg := domain.Message{
			ID:             w.ID.String(),
			Content:        w.Content,
			SenderUsername: "Unknown",
			Timestamp:      w.Timestamp,
		}
		if w.User != nil {
			msg.SenderID = strconv.Itoa(w.User.ID)
			if w.User.Username != "" {
				msg.SenderUsername = w.User.Username
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// MarkRoomRead tells the server the current user has seen everything in the
// room. Empty body by contract.
func (c *Client) MarkRoomRead(ctx context.Context, roomID string) error {
	path := fmt.Sprintf("/api/chat/rooms/%s/mark-read/", roomID)
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking room %s read: %w", roomID, err)
	}
	return nil
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	path := fmt.Sprintf("/api/chat/rooms/%s/delete/", roomID)
	if err := c.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting room %s: %w", roomID, err)
	}
	return nil
}

// ChatUnreadCount returns the total unread messages across all rooms.
func (c *Client) ChatUnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.get(ctx, "/api/chat/unread-count/", nil, &resp); err != nil {
		return 0, fmt.Errorf("fetching chat unread count: %w", err)
	}
	return resp.UnreadCount, nil
}

// GetOrCreateRoom resolves the room for a conversation with otherUserID,
// optionally scoped to an item, creating it server-side on first contact.
// A 2xx response without a room id is ErrMalformedResponse; callers surface
// that to the user instead of opening a dead session.
func (c *Client) GetOrCreateRoom(ctx context.Context, otherUserID int, itemID *int) (string, error) {
	query := url.Values{}
	query.Set("user_id", strconv.Itoa(otherUserID))
	if itemID != nil {
		query.Set("item_id", strconv.Itoa(*itemID))
	}

	var resp struct {
		Room *struct {
			ID json.Number `json:"id"`
		} `json:"room"`
	}
	if err := c.get(ctx, "/api/chat/get-or-create-room/", query, &resp); err != nil {
		return "", fmt.Errorf("get-or-create room with user %d: %w", otherUserID, err)
	}
	if resp.Room == nil || resp.Room.ID.String() == "" {
		return "", ErrMalformedResponse
	}
	return resp.Room.ID.String(), nil
}
