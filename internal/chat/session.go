package chat

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stumart/internal/domain"
)

var (
	// ErrChatUnavailable means the live transport cannot be used on this
	// platform/build. Hard gate: the session never dials.
	ErrChatUnavailable = errors.New("live chat is not available on this platform")
	ErrNotConnected    = errors.New("chat connection is not open")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrSessionOpen     = errors.New("session is already open")
)

// SessionState is the connection lifecycle of one room session. There is no
// reconnect state: a dropped connection stays Disconnected until the room is
// re-entered with a fresh session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateOpen
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// SessionAPI is the slice of the REST client a session needs next to its
// socket.
type SessionAPI interface {
	History(ctx context.Context, roomID string) ([]domain.Message, error)
	MarkRoomRead(ctx context.Context, roomID string) error
	WebSocketURL(roomID string) string
}

// Session owns the message state of one open chat room: a single websocket,
// the merged history + live message list, and the outgoing send path. The
// list lives only as long as the session; closing discards it.
//
// History and the socket are raced deliberately: live frames arriving before
// the history response are buffered and replayed in receipt order once
// history is installed, so neither side overwrites the other.
type Session struct {
	api    SessionAPI
	dialer Dialer
	params SessionParams
	logger *slog.Logger

	mu           sync.Mutex
	state        SessionState
	conn         Conn
	messages     []domain.Message
	pending      []domain.Message
	historyReady bool
	closed       bool
	cancel       context.CancelFunc
	done         chan struct{}
	onChange     func()
}

func NewSession(api SessionAPI, dialer Dialer, params SessionParams, logger *slog.Logger) *Session {
	return &Session{
		api:    api,
		dialer: dialer,
		params: params,
		logger: logger,
	}
}

// Available reports whether the live transport exists on this platform.
func (s *Session) Available() bool {
	return s.dialer != nil
}

func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a snapshot of the visible message list, oldest first.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Done is closed when the connection goroutine exits, whether the dial
// failed, the server hung up, or Close tore it down.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Open starts the session: dials the room socket and, concurrently, fetches
// history and fires the mark-read call. It returns once the work is started;
// the dial outcome arrives through state changes.
func (s *Session) Open(ctx context.Context) error {
	if s.dialer == nil {
		return ErrChatUnavailable
	}

	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrSessionOpen
	}
	s.messages = nil
	s.pending = nil
	s.historyReady = false
	s.closed = false
	s.state = StateConnecting
	done := make(chan struct{})
	s.done = done
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.notify()

	// History and mark-read are independent of the dial and of each other;
	// each logs its own failure and never takes the session down.
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s.loadHistory(gctx)
			return nil
		})
		g.Go(func() error {
			if err := s.api.MarkRoomRead(gctx, s.params.RoomID); err != nil {
				s.logger.Error("chat: mark-read on entry failed", "room", s.params.RoomID, "err", err)
			}
			return nil
		})
		_ = g.Wait()
	}()

	go s.run(ctx, done)
	return nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		// A later Open may own the session by now; only reset our own run.
		if s.done == done {
			s.conn = nil
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		s.notify()
		close(done)
	}()

	conn, err := s.dialer.Dial(ctx, s.api.WebSocketURL(s.params.RoomID))
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("chat: connecting failed", "room", s.params.RoomID, "err", err)
		}
		return
	}

	s.mu.Lock()
	if s.closed || s.done != done {
		// Torn down (or replaced) while the dial was in flight.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()
	s.notify()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(ctx, &frame); err != nil {
			if ctx.Err() == nil {
				s.logger.Info("chat: connection closed", "room", s.params.RoomID, "err", err)
			}
			return
		}
		s.appendLive(frame)
	}
}

// appendLive turns an inbound frame into a Message with a client-local id
// and receipt timestamp. Frames are buffered until history is installed.
func (s *Session) appendLive(frame inboundFrame) {
	msg := domain.Message{
		ID:             uuid.NewString(),
		Content:        frame.Message,
		SenderUsername: "Unknown",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	if frame.UserID != nil {
		msg.SenderID = strconv.Itoa(*frame.UserID)
	}
	if frame.Username != "" {
		msg.SenderUsername = frame.Username
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.historyReady {
		s.messages = append(s.messages, msg)
	} else {
		s.pending = append(s.pending, msg)
	}
	s.mu.Unlock()
	s.notify()
}

// loadHistory installs the server history under any live messages buffered
// while it was loading. On failure the buffered live messages are promoted
// anyway so the session is not silently mute.
func (s *Session) loadHistory(ctx context.Context) {
	history, err := s.api.History(ctx, s.params.RoomID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Error("chat: fetching history failed", "room", s.params.RoomID, "err", err)
		history = nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = append(history, s.pending...)
	s.pending = nil
	s.historyReady = true
	s.mu.Unlock()
	s.notify()
}

// Send writes the draft to the socket as the current user, addressed to the
// room counterpart. Whitespace-only drafts and non-open sessions are
// rejected without touching the connection, so the caller keeps the draft.
// There is no local echo: the message shows up when the server broadcasts it
// back.
func (s *Session) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen
	s.mu.Unlock()
	if !open || conn == nil {
		return ErrNotConnected
	}

	frame := outboundFrame{
		Message:    text,
		UserID:     s.params.UserID,
		ReceiverID: s.params.OtherUserID,
	}
	if err := conn.WriteJSON(ctx, frame); err != nil {
		s.logger.Error("chat: send failed", "room", s.params.RoomID, "err", err)
		return err
	}
	return nil
}

// Close tears the session down unconditionally and idempotently: it must be
// safe before the socket ever opened, after the server hung up, and when
// called twice. The message list does not outlive the session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateDisconnected
	conn := s.conn
	s.conn = nil
	s.messages = nil
	s.pending = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
