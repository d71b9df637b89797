package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stumart/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRoomsAPI struct {
	mu            sync.Mutex
	rooms         []domain.Room
	listErr       error
	onList        func()
	markReadCalls []string
	markReadErr   error
	deleteCalls   []string
	deleteErr     error
}

func (f *fakeRoomsAPI) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Room, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *fakeRoomsAPI) MarkRoomRead(ctx context.Context, roomID string) error {
	f.mu.Lock()
	f.markReadCalls = append(f.markReadCalls, roomID)
	f.mu.Unlock()
	return f.markReadErr
}

func (f *fakeRoomsAPI) DeleteRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, roomID)
	f.mu.Unlock()
	return f.deleteErr
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIdentity struct {
	id  int
	err error
}

func (f fakeIdentity) UserID() (int, error) {
	return f.id, f.err
}

func ts(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func room(id string, unread int, last *time.Time) domain.Room {
	return domain.Room{
		ID:              id,
		User1:           domain.Participant{ID: 1, Username: "ana"},
		User2:           domain.Participant{ID: 2, Username: "bo"},
		UnreadCount:     unread,
		LastMessageTime: last,
	}
}

func TestFetchSortsByLastMessageTimeDescending(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{
		room("a", 0, ts("2023-01-01T10:00:00Z")),
		room("b", 0, ts("2023-01-03T10:00:00Z")),
		room("c", 0, ts("2023-01-02T10:00:00Z")),
	}}
	list := NewRoomList(api, &fakeRefresher{}, fakeIdentity{id: 1}, testLogger())

	list.Fetch(context.Background())

	rooms := list.Rooms()
	require.Len(t, rooms, 3)
	assert.Equal(t, "b", rooms[0].ID)
	assert.Equal(t, "c", rooms[1].ID)
	assert.Equal(t, "a", rooms[2].ID)
	assert.True(t, list.Fetched())
}

func TestFetchLeavesRoomsWithoutTimestampInServerOrder(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{
		room("x", 0, nil),
		room("y", 0, nil),
		room("z", 0, ts("2023-01-03T10:00:00Z")),
	}}
	list := NewRoomList(api, &fakeRefresher{}, fakeIdentity{id: 1}, testLogger())

	list.Fetch(context.Background())

	rooms := list.Rooms()
	require.Len(t, rooms, 3)
	// x and y have no timestamp: they compare equal to everything, so the
	// stable sort must not move them relative to each other.
	xi, yi := indexOf(rooms, "x"), indexOf(rooms, "y")
	assert.Less(t, xi, yi)
}

func indexOf(rooms []domain.Room, id string) int {
	for i, r := range rooms {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func TestFetchKeepsStaleListOnError(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{room("a", 0, nil)}}
	refresher := &fakeRefresher{}
	list := NewRoomList(api, refresher, fakeIdentity{id: 1}, testLogger())

	list.Fetch(context.Background())
	require.Len(t, list.Rooms(), 1)

	api.listErr = errors.New("boom")
	list.Fetch(context.Background())

	assert.Len(t, list.Rooms(), 1, "stale list must survive a failed fetch")
	assert.Equal(t, 1, refresher.count(), "failed fetch must not kick an unread refresh")
}

func TestEnterMarksUnreadRoomRead(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{room("123", 5, nil)}}
	refresher := &fakeRefresher{}
	list := NewRoomList(api, refresher, fakeIdentity{id: 1}, testLogger())
	list.Fetch(context.Background())
	before := refresher.count()

	params, err := list.Enter(context.Background(), list.Rooms()[0])

	require.NoError(t, err)
	assert.Equal(t, "123", params.RoomID)
	assert.Equal(t, 1, params.UserID)
	assert.Equal(t, 2, params.OtherUserID)
	assert.Equal(t, "bo", params.OtherUsername)
	assert.Equal(t, []string{"123"}, api.markReadCalls)
	assert.Equal(t, 0, list.Rooms()[0].UnreadCount)
	assert.Equal(t, before+1, refresher.count(), "exactly one unread refresh")
}

func TestEnterSkipsMarkReadWhenNothingUnread(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{room("123", 0, nil)}}
	list := NewRoomList(api, &fakeRefresher{}, fakeIdentity{id: 2}, testLogger())
	list.Fetch(context.Background())

	params, err := list.Enter(context.Background(), list.Rooms()[0])

	require.NoError(t, err)
	assert.Empty(t, api.markReadCalls)
	assert.Equal(t, "ana", params.OtherUsername, "counterpart resolved from user2's side")
}

func TestEnterFailsWithoutIdentity(t *testing.T) {
	list := NewRoomList(&fakeRoomsAPI{}, &fakeRefresher{}, fakeIdentity{err: errors.New("no token")}, testLogger())

	_, err := list.Enter(context.Background(), room("123", 1, nil))

	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMarkReadFailureKeepsOptimisticZero(t *testing.T) {
	api := &fakeRoomsAPI{
		rooms:       []domain.Room{room("9", 4, nil)},
		markReadErr: errors.New("timeout"),
	}
	refresher := &fakeRefresher{}
	list := NewRoomList(api, refresher, fakeIdentity{id: 1}, testLogger())
	list.Fetch(context.Background())
	before := refresher.count()

	list.MarkRead(context.Background(), "9")

	assert.Equal(t, 0, list.Rooms()[0].UnreadCount, "optimistic zero is not rolled back")
	assert.Equal(t, before, refresher.count(), "no unread refresh on failure")
}

func TestDeleteRemovesRoomLocally(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{room("1", 0, nil), room("2", 0, nil)}}
	refresher := &fakeRefresher{}
	list := NewRoomList(api, refresher, fakeIdentity{id: 1}, testLogger())
	list.Fetch(context.Background())
	before := refresher.count()

	require.NoError(t, list.Delete(context.Background(), "1"))

	rooms := list.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "2", rooms[0].ID)
	assert.Equal(t, before+1, refresher.count())
}

func TestDeleteFailureLeavesListUntouched(t *testing.T) {
	api := &fakeRoomsAPI{
		rooms:     []domain.Room{room("1", 0, nil)},
		deleteErr: errors.New("denied"),
	}
	list := NewRoomList(api, &fakeRefresher{}, fakeIdentity{id: 1}, testLogger())
	list.Fetch(context.Background())

	err := list.Delete(context.Background(), "1")

	assert.Error(t, err)
	assert.Len(t, list.Rooms(), 1)
}

func TestRefreshTogglesRefreshingFlag(t *testing.T) {
	api := &fakeRoomsAPI{}
	list := NewRoomList(api, &fakeRefresher{}, fakeIdentity{id: 1}, testLogger())

	var midFetch bool
	api.onList = func() { midFetch = list.Refreshing() }

	list.Refresh(context.Background())

	assert.True(t, midFetch, "refreshing flag held while the fetch runs")
	assert.False(t, list.Refreshing())
}

// Mirrors the full flow: two rooms fetched, sorted by recency, entering the
// unread one marks it read.
func TestRoomListScenario(t *testing.T) {
	api := &fakeRoomsAPI{rooms: []domain.Room{
		room("123", 5, ts("2023-01-02T12:00:00Z")),
		room("456", 0, ts("2023-01-04T12:00:00Z")),
	}}
	refresher := &fakeRefresher{}
	list := NewRoomList(api, refresher, fakeIdentity{id: 1}, testLogger())

	list.Fetch(context.Background())

	rooms := list.Rooms()
	require.Len(t, rooms, 2)
	require.Equal(t, "456", rooms[0].ID)
	require.Equal(t, "123", rooms[1].ID)

	_, err := list.Enter(context.Background(), rooms[1])
	require.NoError(t, err)

	assert.Equal(t, []string{"123"}, api.markReadCalls)
	assert.Equal(t, 0, list.Rooms()[1].UnreadCount)
}
