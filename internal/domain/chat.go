package domain

import "time"

// Room is one two-party conversation, optionally tied to the listing that
// started it. Counts and timestamps are server-owned; UnreadCount is the only
// field the client mutates locally (optimistic zero on mark-read).
type Room struct {
	ID              string      `json:"id"`
	User1           Participant `json:"user1"`
	User2           Participant `json:"user2"`
	ItemID          *int        `json:"item_id,omitempty"`
	ItemTitle       string      `json:"item_title,omitempty"`
	MessageCount    int         `json:"message_count"`
	UnreadCount     int         `json:"unread_count"`
	LastMessageTime *time.Time  `json:"last_message_time,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Other returns the participant that is not the given user.
func (r Room) Other(userID int) Participant {
	if r.User1.ID == userID {
		return r.User2
	}
	return r.User1
}

// Message is one chat message as held by an open session. History messages
// carry server ids and timestamps; live-received messages get a client uuid
// and the local receipt time.
type Message struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Timestamp      string `json:"timestamp"`
}
