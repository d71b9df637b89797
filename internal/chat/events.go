package chat

import (
	"context"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const maxMessageSize = 4096

// outboundFrame is the JSON the client writes to the room socket.
type outboundFrame struct {
	Message    string `json:"message"`
	UserID     int    `json:"user_id"`
	ReceiverID int    `json:"receiver_id,omitempty"`
}

// inboundFrame is what the server broadcasts, including the sender's own
// messages echoed back.
type inboundFrame struct {
	Message    string `json:"message"`
	UserID     *int   `json:"user_id"`
	ReceiverID *int   `json:"receiver_id,omitempty"`
	Username   string `json:"username,omitempty"`
}

// Conn is one live room connection. The concrete type is a websocket; tests
// substitute an in-memory pipe.
type Conn interface {
	ReadJSON(ctx context.Context, v any) error
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

// Dialer opens room connections. A nil Dialer on a Session means the chat
// transport is unavailable on this platform and the session must not be
// opened at all.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// NewDialer returns the websocket-backed Dialer used outside of tests.
func NewDialer() Dialer {
	return wsDialer{}
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) ReadJSON(ctx context.Context, v any) error {
	return wsjson.Read(ctx, c.conn, v)
}

func (c wsConn) WriteJSON(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c.conn, v)
}

func (c wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
