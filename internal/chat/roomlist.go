package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"stumart/internal/domain"
)

var ErrNotAuthenticated = errors.New("current user is not authenticated")

// RoomsAPI is the slice of the REST client the room list needs.
type RoomsAPI interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	MarkRoomRead(ctx context.Context, roomID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// UnreadRefresher is the aggregator hook; room list changes that affect
// unread state kick a background recount.
type UnreadRefresher interface {
	Refresh(ctx context.Context)
}

// Identity resolves the current user's numeric id (from the token claims).
type Identity interface {
	UserID() (int, error)
}

// SessionParams is everything a chat session needs that the room list
// already knows: the room, who we are, who we talk to.
type SessionParams struct {
	RoomID        string
	UserID        int
	OtherUserID   int
	OtherUsername string
	ItemTitle     string
}

// RoomList maintains the session-authoritative list of the user's chat
// rooms: fetched wholesale on every screen focus, sorted by recency,
// reconciled locally against mark-read and delete.
type RoomList struct {
	api      RoomsAPI
	unread   UnreadRefresher
	identity Identity
	logger   *slog.Logger

	mu         sync.RWMutex
	rooms      []domain.Room
	fetched    bool
	refreshing bool
	onChange   func()
}

func NewRoomList(api RoomsAPI, unread UnreadRefresher, identity Identity, logger *slog.Logger) *RoomList {
	return &RoomList{
		api:      api,
		unread:   unread,
		identity: identity,
		logger:   logger,
	}
}

// SetOnChange registers the UI callback, invoked after every visible state
// change. Set it before the first Fetch.
func (l *RoomList) SetOnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Rooms returns a snapshot of the current list in display order.
func (l *RoomList) Rooms() []domain.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Room, len(l.rooms))
	copy(out, l.rooms)
	return out
}

// Fetched reports whether at least one fetch has completed, so the UI can
// distinguish "loading" from "no rooms".
func (l *RoomList) Fetched() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetched
}

func (l *RoomList) Refreshing() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.refreshing
}

// Fetch replaces the room list with the server's view, most recent first.
// On failure the previous list stays; a stale list beats an empty screen.
func (l *RoomList) Fetch(ctx context.Context) {
	rooms, err := l.api.ListRooms(ctx)
	if err != nil {
		l.logger.Error("chat: fetching rooms failed", "err", err)
		return
	}
	sortRooms(rooms)

	l.mu.Lock()
	l.rooms = rooms
	l.fetched = true
	l.mu.Unlock()
	l.notify()

	l.unread.Refresh(ctx)
}

// sortRooms orders by last message time descending. Rooms missing the
// timestamp compare as equal, so the stable sort leaves them where the
// server put them.
func sortRooms(rooms []domain.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i].LastMessageTime, rooms[j].LastMessageTime
		if a == nil || b == nil {
			return false
		}
		return a.After(*b)
	})
}

// Refresh is the pull-to-refresh entry point: same as Fetch but with the
// refreshing flag held for the spinner.
func (l *RoomList) Refresh(ctx context.Context) {
	l.mu.Lock()
	l.refreshing = true
	l.mu.Unlock()
	l.notify()

	l.Fetch(ctx)

	l.mu.Lock()
	l.refreshing = false
	l.mu.Unlock()
	l.notify()
}

// MarkRead zeroes the room's unread count locally, then tells the server.
// The optimistic zero is never rolled back; a failed POST only logs and the
// next fetch reconciles.
func (l *RoomList) MarkRead(ctx context.Context, roomID string) {
	l.mu.Lock()
	for i := range l.rooms {
		if l.rooms[i].ID == roomID {
			l.rooms[i].UnreadCount = 0
		}
	}
	l.mu.Unlock()
	l.notify()

	if err := l.api.MarkRoomRead(ctx, roomID); err != nil {
		l.logger.Error("chat: mark-read failed", "room", roomID, "err", err)
		return
	}
	l.unread.Refresh(ctx)
}

// Enter resolves everything a session needs for the given room and marks it
// read when it has unread messages.
func (l *RoomList) Enter(ctx context.Context, room domain.Room) (SessionParams, error) {
	userID, err := l.identity.UserID()
	if err != nil {
		return SessionParams{}, fmt.Errorf("entering room %s: %w", room.ID, ErrNotAuthenticated)
	}

	if room.UnreadCount > 0 {
		l.MarkRead(ctx, room.ID)
	}

	other := room.Other(userID)
	return SessionParams{
		RoomID:        room.ID,
		UserID:        userID,
		OtherUserID:   other.ID,
		OtherUsername: other.Username,
		ItemTitle:     room.ItemTitle,
	}, nil
}

// Delete removes the room server-side and, on success, locally. The error is
// returned for the UI to surface; the list is untouched on failure.
func (l *RoomList) Delete(ctx context.Context, roomID string) error {
	if err := l.api.DeleteRoom(ctx, roomID); err != nil {
		l.logger.Error("chat: deleting room failed", "room", roomID, "err", err)
		return err
	}

	l.mu.Lock()
	kept := l.rooms[:0]
	for _, room := range l.rooms {
		if room.ID != roomID {
			kept = append(kept, room)
		}
	}
	l.rooms = kept
	l.mu.Unlock()
	l.notify()

	l.unread.Refresh(ctx)
	return nil
}

func (l *RoomList) notify() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
