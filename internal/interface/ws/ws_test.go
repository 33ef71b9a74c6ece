package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

type fakeInbox struct {
	mu      sync.Mutex
	unread  []notification.Payload
	marked  []string
	allRead int
}

func (f *fakeInbox) Unread(context.Context, string) ([]notification.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, _, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "missing" {
		return false, shared.NewDomainError("notification", "MarkRead", shared.ErrNotFound, "notification not found")
	}
	f.marked = append(f.marked, id)
	return true, nil
}

func (f *fakeInbox) MarkAllRead(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allRead++
	return len(f.unread), nil
}

func dial(t *testing.T, hub *Hub, inbox Inbox, userID string) *websocket.Conn {
	t.Helper()
	h := NewHandler(hub, inbox, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) notification.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg notification.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServe_SendsInitialUnread(t *testing.T) {
	inbox := &fakeInbox{unread: []notification.Payload{{ID: "n-1", Title: "Hi"}, {ID: "n-2", Title: "Yo"}}}
	conn := dial(t, NewHub(nil), inbox, "u-1")

	msg := read(t, conn)
	assert.Equal(t, notification.MessageInitial, msg.Type)
	require.Len(t, msg.Notifications, 2)
	assert.Equal(t, "n-1", msg.Notifications[0].ID)
}

func TestServe_MarkReadActions(t *testing.T) {
	inbox := &fakeInbox{unread: []notification.Payload{{ID: "n-1"}}}
	conn := dial(t, NewHub(nil), inbox, "u-1")
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Frame{Action: ActionMarkRead, NotificationID: "n-1"}))
	msg := read(t, conn)
	assert.Equal(t, notification.MessageMarkedRead, msg.Type)
	assert.Equal(t, "n-1", msg.NotificationID)

	require.NoError(t, conn.WriteJSON(Frame{Action: ActionMarkAllRead}))
	msg = read(t, conn)
	assert.Equal(t, notification.MessageMarkedAllRead, msg.Type)
	require.NotNil(t, msg.Count)
	assert.Equal(t, 1, *msg.Count)

	inbox.mu.Lock()
	assert.Equal(t, []string{"n-1"}, inbox.marked)
	assert.Equal(t, 1, inbox.allRead)
	inbox.mu.Unlock()
}

func TestServe_Errors(t *testing.T) {
	conn := dial(t, NewHub(nil), &fakeInbox{}, "u-1")
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Frame{Action: "delete_everything"}))
	msg := read(t, conn)
	assert.Equal(t, notification.MessageError, msg.Type)
	assert.Equal(t, "unknown action", msg.Error)

	require.NoError(t, conn.WriteJSON(Frame{Action: ActionMarkRead}))
	msg = read(t, conn)
	assert.Equal(t, "notification_id is required", msg.Error)

	require.NoError(t, conn.WriteJSON(Frame{Action: ActionMarkRead, NotificationID: "missing"}))
	msg = read(t, conn)
	assert.Equal(t, "notification not found", msg.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = read(t, conn)
	assert.Equal(t, "invalid frame", msg.Error)
}

func TestHub_PublishReachesOnlyTheUser(t *testing.T) {
	hub := NewHub(nil)
	alice := dial(t, hub, &fakeInbox{}, "alice")
	bob := dial(t, hub, &fakeInbox{}, "bob")
	read(t, alice)
	read(t, bob)

	count := 4
	require.NoError(t, hub.Publish(context.Background(), "alice", notification.UnreadCountMessage(count)))

	msg := read(t, alice)
	assert.Equal(t, notification.MessageUnreadCount, msg.Type)
	assert.Equal(t, 4, *msg.Count)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{hub: hub, userID: "u-1", send: make(chan []byte, 1)}

	hub.Register(c)
	assert.Equal(t, 1, hub.Connections("u-1"))

	hub.Deliver("u-1", notification.UnreadCountMessage(1))
	hub.Deliver("u-1", notification.UnreadCountMessage(2)) // queue full, dropped
	assert.Len(t, c.send, 1)

	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.Connections("u-1"))

	hub.Deliver("u-1", notification.UnreadCountMessage(3))
}

func TestHub_CloseThenUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{hub: hub, userID: "u-1", send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Close()
	assert.Equal(t, 0, hub.Connections("u-1"))
	assert.NotPanics(t, func() { hub.Unregister(c) })
}
